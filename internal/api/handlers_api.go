package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lox/metaculusindex/internal/htmlutil"
	"github.com/lox/metaculusindex/internal/index"
	"github.com/lox/metaculusindex/internal/metaculus"
	"github.com/lox/metaculusindex/internal/metrics"
	"github.com/lox/metaculusindex/internal/question"
)

// descriptionRunes bounds the plain text description excerpt.
const descriptionRunes = 500

type QuestionResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Kind        question.Kind        `json:"kind"`
	Prediction  *question.Prediction `json:"prediction"`
}

type IndexResponse struct {
	Name      string           `json:"name"`
	Before    time.Time        `json:"before"`
	Value     float64          `json:"value"`
	Questions []MemberResponse `json:"questions"`
}

type MemberResponse struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Weight float64 `json:"weight"`
	Zero   float64 `json:"zero"`
	Value  float64 `json:"value"`
}

func (s *Server) handleAPIQuestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	before, _, err := s.parseBefore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := s.fetchers(r.URL.Query().Get("domain")).Question(r.Context(), id)
	if err != nil {
		s.writeFetchError(w, id, err)
		return
	}

	resp := QuestionResponse{
		ID:          id,
		Title:       q.Title,
		Description: htmlutil.Excerpt(q.Description, descriptionRunes),
		Kind:        q.Kind,
	}
	if p, ok := q.BestPredictionBefore(before); ok {
		resp.Prediction = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIIndices(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.indices.Indices))
	for _, def := range s.indices.Indices {
		names = append(names, def.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"indices": names})
}

func (s *Server) handleAPIIndex(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	def, ok := s.indices.Index(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown index %q", name))
		return
	}
	before, historical, err := s.parseBefore(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ix := index.NewBuilder(s.fetchers(def.Domain), s.logger).Build(r.Context(), def.Name, def.Members())

	resp := IndexResponse{Name: ix.Name, Before: before, Questions: make([]MemberResponse, 0, len(ix.Questions))}
	for _, wq := range ix.Questions {
		v := wq.ValueBefore(before)
		resp.Value += v
		resp.Questions = append(resp.Questions, MemberResponse{
			ID:     wq.ID,
			Title:  wq.Question.Title,
			Weight: wq.Weight,
			Zero:   wq.Zero,
			Value:  v,
		})
	}
	// The gauge tracks the current value, so past evaluations leave it alone.
	if !historical {
		metrics.IndexValue.WithLabelValues(ix.Name).Set(resp.Value)
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseBefore reads the optional RFC3339 "before" parameter, defaulting to
// now. explicit reports whether the caller supplied a time.
func (s *Server) parseBefore(r *http.Request) (t time.Time, explicit bool, err error) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		return s.now().UTC(), false, nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid before parameter: want RFC3339, got %q", raw)
	}
	return t, true, nil
}

func (s *Server) writeFetchError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, metaculus.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Warn("question fetch failed", "id", id, "error", err)
	writeError(w, http.StatusBadGateway, err.Error())
}

// writeJSON encodes v before writing the status, so values JSON cannot
// represent, such as NaN contributions, become a 500 rather than an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
