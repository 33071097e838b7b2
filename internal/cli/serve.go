package cli

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/repowizard/repowizard/pkg/buildinfo"
	wizerr "github.com/repowizard/repowizard/pkg/errors"
	"github.com/repowizard/repowizard/pkg/history"
	"github.com/repowizard/repowizard/pkg/runlog"
	"github.com/repowizard/repowizard/pkg/setup"
)

// serveCommand creates the HTTP API command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the setup API over HTTP",
		Long: `Expose repository setup over a small HTTP API.

POST /api/setup accepts a JSON setup request and streams newline-delimited
JSON: one object per log entry, then a final result or error object. Only
one setup runs at a time; concurrent requests receive 409.

GET /api/runs lists recorded runs; GET /api/runs/{id} returns one run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewFileStore("")
			if err != nil {
				return err
			}
			handler := c.newServeHandler(store)
			c.Logger.Infof("listening on %s", addr)

			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				_ = srv.Close()
			}()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return cmd.Context().Err()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// apiServer holds the handler state. busy enforces the one-setup-at-a-time
// rule across handler goroutines.
type apiServer struct {
	cli   *CLI
	store *history.FileStore
	busy  atomic.Bool
}

// newServeHandler builds the chi router. Split from serveCommand so tests
// can drive it with httptest.
func (c *CLI) newServeHandler(store *history.FileStore) http.Handler {
	s := &apiServer{cli: c, store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/setup", s.handleSetup)
	r.Get("/api/runs", s.handleRuns)
	r.Get("/api/runs/{id}", s.handleRun)
	r.Get("/api/version", s.handleVersion)

	return r
}

// streamEvent is one NDJSON line of the setup stream.
type streamEvent struct {
	Type   string        `json:"type"` // "log", "result", or "error"
	Entry  *runlog.Entry `json:"entry,omitempty"`
	Result *setup.Result `json:"result,omitempty"`
	Code   string        `json:"code,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *apiServer) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setup.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, wizerr.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	if !s.busy.CompareAndSwap(false, true) {
		writeAPIError(w, http.StatusConflict, wizerr.ErrCodeInvalidInput, "a setup is already in progress")
		return
	}
	defer s.busy.Store(false)

	sink, err := runlog.NewRecorder("")
	if err != nil {
		s.cli.Logger.Warnf("run log disabled: %v", err)
		sink = runlog.NewWriterRecorder(nil)
	}
	runner := setup.NewRunner(s.cli.Logger, sink, s.store)
	entries := sink.Subscribe(0)

	type runOutcome struct {
		result *setup.Result
		err    error
	}
	done := make(chan runOutcome, 1)
	go func() {
		res, err := runner.Execute(r.Context(), req)
		_ = sink.Close()
		done <- runOutcome{result: res, err: err}
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for e := range entries {
		entry := e
		_ = enc.Encode(streamEvent{Type: "log", Entry: &entry})
		if flusher != nil {
			flusher.Flush()
		}
	}

	out := <-done
	if out.err != nil {
		_ = enc.Encode(streamEvent{
			Type:  "error",
			Code:  string(wizerr.GetCode(out.err)),
			Error: wizerr.UserMessage(out.err),
		})
	} else {
		_ = enc.Encode(streamEvent{Type: "result", Result: out.result})
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, wizerr.ErrCodeInternal, err.Error())
		return
	}
	if runs == nil {
		runs = []*history.Record{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(id)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, wizerr.ErrCodeInternal, err.Error())
		return
	}
	if rec == nil {
		writeAPIError(w, http.StatusNotFound, wizerr.ErrCodeInvalidInput, "run not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *apiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    appName,
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code wizerr.Code, msg string) {
	writeJSON(w, status, map[string]string{"code": string(code), "error": msg})
}
