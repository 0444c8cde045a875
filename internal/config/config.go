// Package config loads logging settings and index definition files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lox/metaculusindex/internal/index"
)

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

const defaultLogFormat = "text"

// NewLoggingConfig validates a level and format as given on the command line.
func NewLoggingConfig(level, format string) (LoggingConfig, error) {
	cfg := LoggingConfig{Level: slog.LevelInfo, Format: defaultLogFormat}
	if level != "" {
		l, err := parseLogLevel(level)
		if err != nil {
			return LoggingConfig{}, fmt.Errorf("invalid log level: %w", err)
		}
		cfg.Level = l
	}
	if format != "" {
		switch format {
		case "json", "text":
			cfg.Format = format
		default:
			return LoggingConfig{}, fmt.Errorf("invalid log format: must be 'json' or 'text'")
		}
	}
	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}

// MemberKind selects which constructor wraps a question in an index.
type MemberKind string

const (
	KindAuto    MemberKind = "auto"
	KindBinary  MemberKind = "binary"
	KindNumeric MemberKind = "numeric"
	KindDate    MemberKind = "date"
)

func (k MemberKind) constructor() (index.Constructor, error) {
	switch k {
	case "", KindAuto:
		return index.FromAny, nil
	case KindBinary:
		return index.FromBinary, nil
	case KindNumeric:
		return index.FromNumericRange, nil
	case KindDate:
		return index.FromDateRange, nil
	default:
		return nil, fmt.Errorf("unknown kind %q: must be auto, binary, numeric or date", k)
	}
}

// File is an index definition file.
type File struct {
	Indices []IndexDef `yaml:"indices"`
}

// IndexDef defines one index.
type IndexDef struct {
	Name      string        `yaml:"name"`
	Domain    string        `yaml:"domain"`
	Questions []QuestionDef `yaml:"questions"`
}

// QuestionDef is one weighted question of an index. Weight defaults to 1.
type QuestionDef struct {
	ID     string     `yaml:"id"`
	Weight *float64   `yaml:"weight"`
	Kind   MemberKind `yaml:"kind"`
}

// LoadFile reads and validates an index definition file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates index definitions.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks names are unique and every question is well formed.
func (f *File) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, def := range f.Indices {
		if def.Name == "" {
			errs = append(errs, fmt.Errorf("indices[%d]: name is required", i))
		} else if seen[def.Name] {
			errs = append(errs, fmt.Errorf("indices[%d]: duplicate name %q", i, def.Name))
		}
		seen[def.Name] = true

		for j, q := range def.Questions {
			if strings.TrimSpace(q.ID) == "" {
				errs = append(errs, fmt.Errorf("indices[%d].questions[%d]: id is required", i, j))
			}
			if _, err := q.Kind.constructor(); err != nil {
				errs = append(errs, fmt.Errorf("indices[%d].questions[%d]: %w", i, j, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Index returns the definition with the given name.
func (f *File) Index(name string) (IndexDef, bool) {
	for _, def := range f.Indices {
		if def.Name == name {
			return def, true
		}
	}
	return IndexDef{}, false
}

// Members converts the definition into index members.
func (d IndexDef) Members() []index.Member {
	members := make([]index.Member, 0, len(d.Questions))
	for _, q := range d.Questions {
		construct, err := q.Kind.constructor()
		if err != nil {
			// Validate rejects these, fall back to trying every constructor.
			construct = index.FromAny
		}
		weight := 1.0
		if q.Weight != nil {
			weight = *q.Weight
		}
		members = append(members, index.Member{ID: q.ID, Weight: weight, Construct: construct})
	}
	return members
}
