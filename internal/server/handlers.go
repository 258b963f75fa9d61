package server

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/ariel/internal/content"
	"github.com/hupe1980/ariel/internal/web"
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	err := s.page.Render(w, web.PageData{
		FileName:     s.cfg.DisplayName(),
		PollInterval: s.cfg.PollInterval,
		MermaidURL:   s.cfg.MermaidURL(),
	})
	if err != nil {
		s.logger.Error("rendering page", slog.String("error", err.Error()))
	}
}

// handleContent answers a conditional fetch of the watched file:
// 200 with the exact bytes, 304 when If-None-Match names the current
// fingerprint, or 404 when the file cannot be read.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	resp := s.source.Fetch(conditionalRequest(r.Header.Get("If-None-Match")))
	s.metrics.observeOutcome(resp.Outcome)

	h := w.Header()
	h.Set("Cache-Control", "no-cache")

	switch resp.Outcome {
	case content.OutcomeNotModified:
		h.Set("ETag", formatETag(resp.Fingerprint))
		w.WriteHeader(http.StatusNotModified)

	case content.OutcomeFresh:
		h.Set("ETag", formatETag(resp.Fingerprint))
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Content-Length", strconv.Itoa(len(resp.Content)))
		h.Set("X-Content-Type-Options", "nosniff")

		if !resp.ModTime.IsZero() {
			h.Set("Last-Modified", resp.ModTime.UTC().Format(http.TimeFormat))
		}

		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_, _ = w.Write(resp.Content)
		}

	default:
		s.logger.Debug("diagram unavailable",
			slog.String("file", s.source.Path()),
			slog.String("error", resp.Err.Error()),
		)
		http.Error(w, resp.Err.Error(), http.StatusNotFound)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	etag := s.page.ScriptETag()

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")

	req := conditionalRequest(r.Header.Get("If-None-Match"))
	if req.MatchAny || slices.Contains(req.IfNoneMatch, strings.Trim(etag, `"`)) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		_, _ = w.Write(s.page.Script())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
