// Package api provides the HTTP server for fundash.
//
// It serves the dashboard page, a JSON API for refreshes, master-list
// search, identifier resolution and chat, and a WebSocket stream of
// refresh progress.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/agent"
	"github.com/seenimoa/fundash/internal/app"
	"github.com/seenimoa/fundash/internal/config"
	"github.com/seenimoa/fundash/internal/dashboard"
	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/internal/masterlist"
	"github.com/seenimoa/fundash/internal/report"
	"github.com/seenimoa/fundash/internal/resolver"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/web"
)

// Version is reported by the health endpoint; set by the CLI at startup.
var Version = "dev"

// Server is the HTTP server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	dash     *dashboard.Service
	list     *masterlist.List
	resolver *resolver.Resolver
	sessions *agent.Sessions
	defaults []string
	sources  []string
	chat     bool
	wsHub    *WSHub
	validate *validator.Validate
	logger   arbor.ILogger
	started  time.Time
}

// NewServer creates a server over the wired application.
func NewServer(a *app.App) *Server {
	srv := &Server{
		cfg:      a.Config,
		dash:     a.Dashboard,
		list:     a.List,
		resolver: a.Resolver,
		sessions: a.Sessions,
		defaults: a.DefaultTickers(),
		chat:     a.LLM != nil,
		wsHub:    NewWSHub(),
		validate: validator.New(),
		logger:   logging.OrDefault(a.Logger),
		started:  time.Now(),
	}
	if a.Sources != nil {
		srv.sources = a.Sources.Sources()
	}
	srv.dash.Subscribe(srv.broadcastEvent)
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub. Run must be started before clients connect.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("api: listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-done:
	}
	s.logger.Info().Msg("api: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Dashboard page
	r.Get("/", s.handleIndex)
	r.Post("/chat", s.handleChatForm)

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Master list
		r.Get("/stocks", s.handleStocks)
		r.Get("/resolve/{ticker}", s.handleResolve)

		// Refresh
		r.With(middleware.Timeout(150*time.Second)).Post("/dashboard", s.handleDashboard)

		// Chat
		r.Post("/chat", s.handleChat)
		r.Get("/chat/{session}", s.handleChatHistory)
		r.Delete("/chat/{session}", s.handleClearChat)

		// Configuration
		r.Get("/config/keys", s.handleGetConfigKeys)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))

	return r
}

// requestLogger logs each request through arbor. The wrapped writer keeps
// http.Hijacker so WebSocket upgrades still work.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("elapsed", time.Since(start).String()).
			Msg("api: request")
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DashboardRequest is the body for POST /api/v1/dashboard. An empty list
// is allowed and yields the no-selection message.
type DashboardRequest struct {
	Tickers []string `json:"tickers" validate:"max=50,dive,required,max=32"`
}

// ChatRequest is the body for POST /api/v1/chat.
type ChatRequest struct {
	SessionID string   `json:"session_id,omitempty" validate:"omitempty,max=64"`
	Message   string   `json:"message"              validate:"required,max=4000"`
	Tickers   []string `json:"tickers,omitempty"    validate:"max=50,dive,required,max=32"`
}

// ChatResponse is returned by POST /api/v1/chat.
type ChatResponse struct {
	SessionID string               `json:"session_id"`
	Answer    string               `json:"answer"`
	History   []models.ChatMessage `json:"history"`
}

// ResolveResponse is returned by GET /api/v1/resolve/{ticker}.
type ResolveResponse struct {
	Ticker      string          `json:"ticker"`
	Identifiers []string        `json:"identifiers"`
	Source      resolver.Source `json:"source"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Uptime    string   `json:"uptime"`
	Stocks    int      `json:"stocks"`
	Sources   []string `json:"sources"`
	Chat      bool     `json:"chat"`
	WSClients int      `json:"ws_clients"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Version:   Version,
			Uptime:    time.Since(s.started).Round(time.Second).String(),
			Stocks:    s.list.Len(),
			Sources:   s.sources,
			Chat:      s.chat,
			WSClients: s.wsHub.ClientCount(),
		},
	})
}

// handleIndex renders the dashboard for ?ticker=A&ticker=B. Without any
// ticker parameter the first master-list rows are shown; an explicitly
// empty selection shows the no-selection message.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tickers := s.defaults
	if vals, ok := r.URL.Query()["ticker"]; ok {
		tickers = splitTickers(vals...)
	}
	s.renderPage(w, r, tickers, r.URL.Query().Get("session"), "")
}

// handleChatForm answers the dashboard's chat form and re-renders the page.
func (s *Server) handleChatForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	tickers := splitTickers(r.PostForm.Get("tickers"))
	message := strings.TrimSpace(r.PostForm.Get("message"))
	session := r.PostForm.Get("session_id")

	if message == "" {
		s.renderPage(w, r, tickers, session, "Please enter a question.")
		return
	}
	res := s.dash.Refresh(r.Context(), tickers)
	bot, id := s.sessions.Get(session)
	bot.GenerateResponse(r.Context(), message, agent.StocksFromResult(res))
	s.renderResult(w, res, id, bot.History(), "")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, tickers []string, session, chatErr string) {
	res := s.dash.Refresh(r.Context(), tickers)
	var history []models.ChatMessage
	if bot, ok := s.sessions.Lookup(session); ok {
		history = bot.History()
	} else {
		session = ""
	}
	s.renderResult(w, res, session, history, chatErr)
}

func (s *Server) renderResult(w http.ResponseWriter, res *dashboard.Result, session string, history []models.ChatMessage, chatErr string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	err := report.RenderDashboard(w, report.PageInput{
		Result:    res,
		Stocks:    s.list.Stocks(),
		SessionID: session,
		Chat:      history,
		ChatError: chatErr,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("api: rendering dashboard failed")
	}
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	stocks := s.list.Search(r.URL.Query().Get("q"), limit)
	if stocks == nil {
		stocks = []models.Stock{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: stocks})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	ids, src := s.resolver.Explain(ticker)
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ResolveResponse{Ticker: ticker, Identifiers: ids, Source: src},
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var req DashboardRequest
	if !s.decode(w, r, &req) {
		return
	}
	res := s.dash.Refresh(r.Context(), req.Tickers)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	var stocks []agent.StockContext
	if len(req.Tickers) > 0 {
		stocks = agent.StocksFromResult(s.dash.Refresh(r.Context(), req.Tickers))
	}
	bot, id := s.sessions.Get(req.SessionID)
	answer := bot.GenerateResponse(r.Context(), req.Message, stocks)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ChatResponse{SessionID: id, Answer: answer, History: bot.History()},
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	bot, ok := s.sessions.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ChatResponse{SessionID: id, History: bot.History()},
	})
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	if !s.sessions.Clear(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"session_id": id}})
}

// ============================================================
// Helpers
// ============================================================

// decode reads a JSON body into v and validates it, writing a 400 on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// splitTickers accepts repeated and comma-separated values.
func splitTickers(vals ...string) []string {
	out := []string{}
	for _, v := range vals {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get().Warn().Err(err).Msg("api: failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
