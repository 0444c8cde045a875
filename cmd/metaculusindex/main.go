package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/metaculusindex/internal/api"
	"github.com/lox/metaculusindex/internal/config"
	"github.com/lox/metaculusindex/internal/doomsday"
	"github.com/lox/metaculusindex/internal/htmlutil"
	"github.com/lox/metaculusindex/internal/index"
	"github.com/lox/metaculusindex/internal/logging"
	"github.com/lox/metaculusindex/internal/metaculus"
	"github.com/lox/metaculusindex/internal/scheduler"
)

type Globals struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`

	Domain    string  `default:"www" env:"METACULUS_DOMAIN" help:"Metaculus subdomain to query, e.g. www, pandemic, ai."`
	Rate      float64 `default:"2" env:"METACULUS_RATE" help:"Maximum API requests per second, 0 for unlimited."`
	LogLevel  string  `default:"info" env:"LOG_LEVEL" enum:"debug,info,warn,error" help:"Log level."`
	LogFormat string  `default:"text" env:"LOG_FORMAT" enum:"text,json" help:"Log format."`
}

type CLI struct {
	Globals

	Question QuestionCmd `cmd:"" help:"Show the best prediction for a question."`
	Index    IndexCmd    `cmd:"" help:"Evaluate a weighted index of questions."`
	Clock    ClockCmd    `cmd:"" help:"Compute the doomsday clock from catastrophe questions."`
	Serve    ServeCmd    `cmd:"" help:"Serve predictions and indices over HTTP."`
}

// app holds what commands share once flags are parsed.
type app struct {
	domain string
	rate   float64
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*metaculus.Client
}

// client returns the shared client for domain, creating it on first use so
// that requests to one domain share a rate limit.
func (a *app) client(domain string) *metaculus.Client {
	if domain == "" {
		domain = a.domain
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[domain]; ok {
		return c
	}
	c := metaculus.NewDomainClient(domain, a.logger)
	c.SetRateLimit(a.rate, 1)
	a.clients[domain] = c
	return c
}

func (a *app) fetcher(domain string) index.Fetcher {
	return a.client(domain)
}

// at parses an optional RFC3339 evaluation time, defaulting to now.
func at(before string) (time.Time, error) {
	if before == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, before)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --before: %w", err)
	}
	return t, nil
}

type QuestionCmd struct {
	ID     string `arg:"" help:"Question id."`
	Before string `help:"Evaluate as of this RFC3339 time instead of now."`
}

func (c *QuestionCmd) Run(a *app) error {
	t, err := at(c.Before)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	q, err := a.client("").Question(ctx, c.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", q.Title)
	if desc := htmlutil.Excerpt(q.Description, 280); desc != "" {
		fmt.Printf("%s\n", desc)
	}
	fmt.Printf("\nkind:       %s\n", q.Kind)
	if p, ok := q.BestPredictionBefore(t); ok {
		fmt.Printf("prediction: %s\n", p)
	} else {
		fmt.Printf("prediction: none as of %s\n", t.Format(time.RFC3339))
	}
	return nil
}

type IndexCmd struct {
	File    string    `short:"f" type:"existingfile" env:"INDEX_FILE" help:"Index definition file."`
	Name    string    `arg:"" optional:"" help:"Index to evaluate from the definition file."`
	IDs     []string  `name:"id" help:"Question ids, when not using a definition file."`
	Weights []float64 `name:"weight" help:"Weight for each --id, paired by position."`
	Before  string    `help:"Evaluate as of this RFC3339 time instead of now."`
}

func (c *IndexCmd) Run(a *app) error {
	t, err := at(c.Before)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var ix *index.Index
	switch {
	case c.File != "":
		indices, err := config.LoadFile(c.File)
		if err != nil {
			return err
		}
		def, ok := indices.Index(c.Name)
		if !ok {
			return fmt.Errorf("no index named %q in %s", c.Name, c.File)
		}
		ix = index.NewBuilder(a.fetcher(def.Domain), a.logger).Build(ctx, def.Name, def.Members())
	case len(c.IDs) > 0:
		if len(c.Weights) != len(c.IDs) {
			a.logger.Warn("ids and weights differ in length, extra entries ignored", "ids", len(c.IDs), "weights", len(c.Weights))
		}
		ix = index.NewBuilder(a.fetcher(""), a.logger).FromIDs(ctx, c.IDs, c.Weights)
	default:
		return fmt.Errorf("either --file with an index name or --id/--weight pairs are required")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWEIGHT\tZERO\tVALUE\tTITLE")
	var total float64
	for _, wq := range ix.Questions {
		v := wq.ValueBefore(t)
		total += v
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%s\n", wq.ID, wq.Weight, wq.Zero, v, wq.Question.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ntotal: %g\n", total)
	return nil
}

type ClockCmd struct {
	Before string `help:"Evaluate as of this RFC3339 time instead of now."`
}

func (c *ClockCmd) Run(a *app) error {
	t, err := at(c.Before)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	in, err := doomsday.Fetch(ctx, a.client(""), t)
	if err != nil {
		return err
	}
	clock := doomsday.Compute(in, t)
	a.logger.Info("doomsday clock computed", "extinction", clock.Extinction, "years_remaining", clock.YearsRemaining)
	fmt.Println(clock.Summary())
	return nil
}

type ServeCmd struct {
	Port    string        `default:"8080" env:"PORT" help:"HTTP server port."`
	File    string        `short:"f" type:"existingfile" env:"INDEX_FILE" help:"Index definition file."`
	Refresh time.Duration `default:"1h" env:"INDEX_REFRESH" help:"How often to re-evaluate indices for /metrics, 0 to disable."`
}

func (c *ServeCmd) Run(a *app) error {
	var indices *config.File
	if c.File != "" {
		f, err := config.LoadFile(c.File)
		if err != nil {
			return err
		}
		indices = f
		a.logger.Info("loaded index definitions", "file", c.File, "indices", len(f.Indices))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if indices != nil && c.Refresh > 0 {
		go scheduler.New(a.fetcher, indices, c.Refresh, a.logger).Run(ctx)
	}

	return api.NewServer(a.fetcher, indices, c.Port, a.logger).Run(ctx)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("metaculusindex"),
		kong.Description("Query Metaculus predictions and evaluate weighted indices."),
		kong.UsageOnError(),
	)

	logCfg, err := config.NewLoggingConfig(cli.LogLevel, cli.LogFormat)
	ctx.FatalIfErrorf(err)
	logger, err := logging.New(logCfg)
	ctx.FatalIfErrorf(err)
	slog.SetDefault(logger)

	ctx.FatalIfErrorf(ctx.Run(&app{
		domain:  cli.Domain,
		rate:    cli.Rate,
		logger:  logger,
		clients: make(map[string]*metaculus.Client),
	}))
}
