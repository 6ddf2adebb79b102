package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eventlist/internal/config"
	"eventlist/internal/controller"
	"eventlist/internal/ics"
	appLog "eventlist/internal/log"
	"eventlist/internal/model"
	"eventlist/internal/view"
)

// maxFormBytes caps interaction POST bodies.
const maxFormBytes = 64 << 10

// Server serves the event list page and turns form posts into controller
// interactions. The view is the document the controller renders into; the
// server copies posted form values into it and resolves click targets
// against it.
type Server struct {
	cfg  *config.Config
	page *view.View
	ctrl *controller.Controller
	mux  *http.ServeMux

	now func() time.Time
}

// NewServer constructs a new Server around an initialised controller and
// the view it renders into.
func NewServer(cfg *config.Config, v *view.View, ctrl *controller.Controller) *Server {
	s := &Server{
		cfg:  cfg,
		page: v,
		ctrl: ctrl,
		mux:  http.NewServeMux(),
		now:  time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler: request logging, then optional
// basic auth, then the routes.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestLogger(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials count as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventlist", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe runs the server on cfg.Listen until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /ui/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /ui/click", s.handleClick)
	s.mux.HandleFunc("POST /ui/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /ui/dismiss", s.handleDismiss)
	s.mux.HandleFunc("GET /events.ics", s.handleICS)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIndex serves the current document. It is rendered into a buffer
// first so a serialisation error can still become a 500.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := s.page.WriteHTML(&buf); err != nil {
		appLog.Error("render page failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// handleSubmit runs the submit interaction on the posted field values. The
// draft travels with the request; the page inputs only get it back when
// it is rejected or fails.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	draft := model.Draft{
		Name:  r.PostForm.Get("name"),
		Start: r.PostForm.Get("start"),
		End:   r.PostForm.Get("end"),
	}
	s.respond(w, r, controller.Submit, s.ctrl.HandleSubmit(r.Context(), draft))
}

// handleClick is the table body's delegated click: the posted id is the
// data-id of the button that was pressed.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	target := s.page.ClickTarget(r.PostForm.Get("id"))
	s.interact(w, r, controller.Click, target)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.interact(w, r, controller.Toggle, view.Target{})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.page.DismissNotice()
	seeOther(w, r)
}

// interact runs one controller interaction read from the page state.
func (s *Server) interact(w http.ResponseWriter, r *http.Request, in controller.Interaction, target view.Target) {
	s.respond(w, r, in, s.ctrl.Handle(r.Context(), in, target))
}

// respond redirects back to the page. Failures have already been shown in
// the notice area, so the response is the same redirect either way.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, in controller.Interaction, err error) {
	if err != nil {
		if errors.Is(err, controller.ErrNotInitialized) {
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		appLog.Warn("interaction ended with error", "interaction", string(in), "err", err)
	}
	seeOther(w, r)
}

// handleICS exports the currently shown list as iCalendar.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	res := ics.Export(s.ctrl.Events(), s.cfg.Location(), now, now)
	if len(res.Skipped) > 0 {
		appLog.Debug("ics export skipped events", "count", len(res.Skipped))
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	_, _ = w.Write([]byte(res.Body))
}

// handlePreview serves the last captured screenshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile maps a missing file to 404.
	http.ServeFile(w, r, s.cfg.Capture.OutputPath)
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return false
	}
	return true
}

func seeOther(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
