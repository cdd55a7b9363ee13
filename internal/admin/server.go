package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"uptime-sim/internal/game"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/oracle"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/scenario"
	"uptime-sim/internal/sim"
)

const maxCommandBytes = 1 << 20

type Server struct {
	Sim *sim.Simulator
	tpl *template.Template
	mux *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

// ActionStatus is one catalog action with its availability right now.
type ActionStatus struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Cost      float64 `json:"cost"`
	Duration  float64 `json:"duration"`
	Cooldown  float64 `json:"cooldown"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

func NewServer(sim *sim.Simulator) *Server {
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"pct": func(v float64) float64 { return v * 100 },
	}).ParseFS(content, "templates/index.html"))
	s := &Server{Sim: sim, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /actions", s.handleActions)
	s.mux.HandleFunc("GET /report", s.handleReport)
	s.mux.HandleFunc("POST /command", s.handleCommand)
	s.mux.HandleFunc("GET /task", s.handleTask)
	s.mux.HandleFunc("POST /task", s.handleAnswer)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("admin shutdown", "err", err)
		}
	}()
	log.Info("admin UI listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.State()
	arc, phase := s.Sim.Phase()
	var task *oracle.Assignment
	if a, ok := s.Sim.Task(); ok {
		task = &a
	}
	data := struct {
		Session  string
		State    *game.State
		Metrics  any
		Actions  []ActionStatus
		Report   string
		Scenario string
		Phase    scenario.Phase
		Task     *oracle.Assignment
	}{
		Session:  s.Sim.SessionID(),
		State:    st,
		Metrics:  s.Sim.Latest(),
		Actions:  s.actions(st),
		Report:   s.Sim.Report(),
		Scenario: arc,
		Phase:    phase,
		Task:     task,
	}
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	b, err := game.Serialize(s.Sim.State())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Latest())
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.actions(s.Sim.State()))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"summary": s.Sim.Report()})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	cmd, err := reducer.DecodeCommand(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.Sim.Submit(cmd); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": cmd.Type()})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	a, ok := s.Sim.Task()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// taskAnswer carries either a chosen index or free text.
type taskAnswer struct {
	Answer json.RawMessage `json:"answer"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var in taskAnswer
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var answer any
	var idx int
	var text string
	switch {
	case json.Unmarshal(in.Answer, &idx) == nil:
		answer = idx
	case json.Unmarshal(in.Answer, &text) == nil:
		answer = text
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "answer must be an index or a string"})
		return
	}
	correct, err := s.Sim.AnswerTask(r.Context(), answer)
	switch {
	case errors.Is(err, sim.ErrNoTask):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"correct": correct})
	}
}

func (s *Server) actions(st *game.State) []ActionStatus {
	cat := s.Sim.Catalog()
	var out []ActionStatus
	for _, id := range cat.ActionIDs() {
		def, _ := cat.Action(id)
		a := ActionStatus{
			ID:        id,
			Name:      def.Name,
			Category:  def.Category,
			Cost:      def.Cost,
			Duration:  def.Duration,
			Cooldown:  def.Cooldown,
			Available: true,
		}
		if err := reducer.CanExecute(st, def, firstIncident(st)); err != nil {
			a.Available = false
			a.Reason = err.Error()
		}
		out = append(out, a)
	}
	return out
}

func firstIncident(st *game.State) *game.Incident {
	if len(st.Incidents) == 0 {
		return nil
	}
	return st.Incidents[0]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
