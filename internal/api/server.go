package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/helpdesk-io/helpdesk/internal/admin"
	"github.com/helpdesk-io/helpdesk/internal/desk"
	"github.com/helpdesk-io/helpdesk/internal/logbuf"
	"github.com/helpdesk-io/helpdesk/internal/ticket"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const (
	defaultLogLimit = admin.DashboardLogLines
	maxFormBytes    = 64 << 10
)

// Desk is the ticket API the server needs.
type Desk interface {
	Create(ctx context.Context, nt desk.NewTicket, origin desk.Origin) (*protocol.Ticket, error)
	Get(ctx context.Context, id string) (*protocol.Ticket, error)
	List(ctx context.Context, filter string) ([]*protocol.Ticket, error)
	Search(ctx context.Context, query string) ([]*protocol.Ticket, error)
	Stats(ctx context.Context) (ticket.Stats, error)
}

// Admin is the admin action API the server needs.
type Admin interface {
	Dispatch(ctx context.Context, action admin.Action, id string) (admin.Result, error)
	Dashboard(ctx context.Context, filter string) (*admin.Dashboard, error)
}

// ProcessLogs queries recently captured process log records.
type ProcessLogs interface {
	Recent(f logbuf.Filter) []logbuf.Entry
}

// Deps are the components served over HTTP. Everything except Desk and
// Admin may be nil.
type Deps struct {
	Desk        Desk
	Admin       Admin
	Events      admin.EventTail
	ProcessLogs ProcessLogs
	Telegram    http.Handler
	Webhook     http.Handler
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	// AdminPassword or AdminPasswordHash (bcrypt) guards /admin. With
	// neither set every admin request is refused.
	AdminPassword     string
	AdminPasswordHash string
}

// Server is the helpdesk HTTP server.
type Server struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates a new API server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/tickets", s.handleCreateTicket)
	r.Get("/api/tickets", s.handleSearchTickets)
	r.Get("/api/tickets/{id}", s.handleGetTicket)

	if deps.Telegram != nil {
		r.Post("/telegram/webhook", deps.Telegram.ServeHTTP)
	}
	if deps.Webhook != nil {
		r.Post("/api/webhook/{name}", deps.Webhook.ServeHTTP)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/", s.handleAdminPanel)
		r.Get("/tickets", s.handleAdminTickets)
		r.Post("/tickets/{id}/{action}", s.handleAdminAction)
		r.Get("/stats", s.handleAdminStats)
		r.Get("/logs", s.handleAdminLogs)
		r.Get("/process-logs", s.handleProcessLogs)
	})

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Public handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createTicketRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var req createTicketRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		req = createTicketRequest{
			Name:    r.PostFormValue("name"),
			Email:   r.PostFormValue("email"),
			Message: r.PostFormValue("message"),
		}
	}

	t, err := s.deps.Desk.Create(r.Context(), desk.NewTicket{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}, desk.OriginWeb)
	if err != nil {
		var verr *ticket.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
			return
		}
		writeError(w, http.StatusInternalServerError, "could not create ticket")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": t.ID})
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Desk.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDeskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleSearchTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.deps.Desk.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeDeskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// --- Admin handlers ---

type panelResponse struct {
	Result    *admin.Result    `json:"result,omitempty"`
	Dashboard *admin.Dashboard `json:"dashboard"`
}

func (s *Server) handleAdminPanel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var resp panelResponse

	if action := q.Get("action"); action != "" {
		res, err := s.deps.Admin.Dispatch(r.Context(), admin.Action(action), q.Get("id"))
		if err != nil {
			s.writeDeskError(w, err)
			return
		}
		resp.Result = &res
	}

	dash, err := s.deps.Admin.Dashboard(r.Context(), q.Get("filter"))
	if err != nil {
		s.writeDeskError(w, err)
		return
	}
	resp.Dashboard = dash
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.deps.Desk.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		s.writeDeskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleAdminAction(w http.ResponseWriter, r *http.Request) {
	action := admin.Action(chi.URLParam(r, "action"))
	res, err := s.deps.Admin.Dispatch(r.Context(), action, chi.URLParam(r, "id"))
	if err != nil {
		s.writeDeskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Desk.Stats(r.Context())
	if err != nil {
		s.writeDeskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	limit := defaultLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	lines, err := s.deps.Events.Tail(limit)
	if err != nil {
		s.logger.Error("event log read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "event log unavailable")
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleProcessLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.ProcessLogs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	f := logbuf.Filter{
		MinLevel:  slog.LevelDebug,
		Component: q.Get("component"),
		Limit:     200,
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if lvl := q.Get("level"); lvl != "" {
		level, ok := logbuf.ParseLevel(lvl)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown level "+strconv.Quote(lvl))
			return
		}
		f.MinLevel = level
	}
	if since := q.Get("since"); since != "" {
		if ms, err := strconv.ParseInt(since, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		}
	}

	writeJSON(w, http.StatusOK, s.deps.ProcessLogs.Recent(f))
}

// --- Helpers ---

func statusFor(err error) int {
	var verr *ticket.ValidationError
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ticket.ErrInvalidStatus),
		errors.Is(err, ticket.ErrNotConfirmed),
		errors.Is(err, admin.ErrUnknownAction),
		errors.As(err, &verr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeDeskError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
