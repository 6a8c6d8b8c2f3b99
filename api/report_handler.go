package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/sentinews/internal/pipeline"
	"github.com/seenimoa/sentinews/internal/report"
	"github.com/seenimoa/sentinews/internal/store"
	"github.com/seenimoa/sentinews/pkg/models"
)

// handleIndex serves the search form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(report.IndexHTML()))
}

// handleResults runs the pipeline for a submitted form and renders the
// result page.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RunTimeout)
	defer cancel()

	res, err := s.runner.RunQuery(ctx, r.PostForm.Get("keyword"), r.PostForm.Get("start_date"), r.PostForm.Get("end_date"), nil)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeReport(w, res, report.FormatHTML)
}

// handleRunReport renders a recorded run. ?format=text selects plain text.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "run history is not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	res, err := s.history.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	format := report.FormatHTML
	if r.URL.Query().Get("format") == "text" {
		format = report.FormatText
	}
	s.writeReport(w, res, format)
}

func (s *Server) writeReport(w http.ResponseWriter, res *models.PipelineResult, format report.ReportFormat) {
	cfg := report.DefaultReportConfig()
	cfg.Format = format

	var (
		body string
		err  error
	)
	if format == report.FormatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		body, err = report.GenerateText(res, cfg)
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		body, err = report.GenerateHTML(res, cfg)
	}
	if err != nil {
		s.log.Error("render report failed", "run_id", res.RunID, "error", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(body))
}
