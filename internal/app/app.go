// Package app содержит HTTP-обработчики и маршрутизацию сервиса коротких ссылок.
package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tempizhere/shortlink/internal/auth"
	"github.com/tempizhere/shortlink/internal/middleware"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/repository"
	"github.com/tempizhere/shortlink/internal/service"
	"go.uber.org/zap"
)

// maxBodySize ограничивает размер тела JSON-запроса
const maxBodySize = 1 << 20

// App содержит хендлеры и зависимости
type App struct {
	svc    *service.Service
	pinger repository.Pinger
	logger *zap.Logger
}

// NewApp создаёт новое приложение; pinger может быть nil
func NewApp(svc *service.Service, pinger repository.Pinger, logger *zap.Logger) *App {
	return &App{svc: svc, pinger: pinger, logger: logger}
}

// RouterOptions зависимости middleware маршрутизатора
type RouterOptions struct {
	Tokens middleware.TokenParser
	Subnet *middleware.Subnet
}

// Router собирает chi-маршрутизатор со всеми обработчиками
func (a *App) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggingMiddleware(a.logger))
	r.Use(middleware.GzipMiddleware)
	if opts.Tokens != nil {
		r.Use(middleware.AuthMiddleware(opts.Tokens, a.logger))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/ping", a.HandlePing)
	r.Route("/api", func(r chi.Router) {
		r.Post("/shorten", a.HandleShorten)
		r.Post("/verify-password", a.HandleVerifyPassword)
		r.Get("/user/links", a.HandleUserLinks)
		r.With(middleware.TrustedSubnetMiddleware(opts.Subnet, a.logger)).Get("/internal/stats", a.HandleStats)
	})
	r.Get("/{code}", a.HandleRedirect)

	return r
}

// HandleShorten обрабатывает POST /api/shorten
func (a *App) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req models.ShortenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	shortURL, err := a.svc.Issue(r.Context(), service.IssueRequest{
		URL:      req.URL,
		Password: req.Password,
		Owner:    auth.IdentityFromContext(r.Context()),
	})
	switch {
	case err == nil:
		a.writeJSONResponse(w, http.StatusOK, models.ShortenResponse{ShortURL: shortURL})
	case errors.Is(err, service.ErrEmptyURL):
		a.writeError(w, http.StatusBadRequest, "URL is required")
	case errors.Is(err, service.ErrInvalidURL):
		a.writeError(w, http.StatusBadRequest, "Invalid URL")
	case errors.Is(err, service.ErrPasswordTooLong):
		a.writeError(w, http.StatusBadRequest, "Password is too long")
	default:
		a.internalError(w, r, "Failed to shorten URL", err)
	}
}

// HandleRedirect обрабатывает GET /{code}
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	res, err := a.svc.Resolve(r.Context(), code)
	if errors.Is(err, service.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "URL not found")
		return
	}
	if err != nil {
		a.internalError(w, r, "Failed to resolve link", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if res.Outcome == service.OutcomeRequiresPassword {
		http.Redirect(w, r, "/"+code+"/password", http.StatusFound)
		return
	}
	http.Redirect(w, r, res.OriginalURL, http.StatusFound)
}

// HandleVerifyPassword обрабатывает POST /api/verify-password
func (a *App) HandleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPasswordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	original, err := a.svc.VerifyAndResolve(r.Context(), req.ShortCode, req.Password)
	switch {
	case err == nil:
		a.writeJSONResponse(w, http.StatusOK, models.VerifyPasswordResponse{OriginalURL: original})
	case errors.Is(err, service.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "Link not found or not protected")
	case errors.Is(err, service.ErrIncorrectPassword):
		a.writeError(w, http.StatusUnauthorized, "Incorrect password")
	default:
		a.internalError(w, r, "Failed to verify password", err)
	}
}

// HandleUserLinks обрабатывает GET /api/user/links
func (a *App) HandleUserLinks(w http.ResponseWriter, r *http.Request) {
	links, err := a.svc.ListOwned(r.Context(), auth.IdentityFromContext(r.Context()))
	if errors.Is(err, service.ErrUnauthenticated) {
		a.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		a.internalError(w, r, "Failed to list links", err)
		return
	}

	resp := models.LinksResponse{Links: make([]models.LinkResponse, 0, len(links))}
	for _, l := range links {
		resp.Links = append(resp.Links, models.LinkResponse{
			ID:        l.ID,
			Original:  l.Original,
			ShortCode: l.ShortCode,
			ShortURL:  a.svc.ShortURL(l.ShortCode),
			Protected: l.Protected(),
			Clicks:    l.Clicks,
			CreatedAt: l.CreatedAt,
		})
	}
	a.writeJSONResponse(w, http.StatusOK, resp)
}

// HandlePing обрабатывает GET /ping
func (a *App) HandlePing(w http.ResponseWriter, r *http.Request) {
	if a.pinger != nil {
		if err := a.pinger.PingContext(r.Context()); err != nil {
			a.logger.Error("Storage ping failed", zap.Error(err))
			a.writeError(w, http.StatusInternalServerError, "Storage unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// HandleStats обрабатывает GET /api/internal/stats
func (a *App) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Stats(r.Context())
	if err != nil {
		a.internalError(w, r, "Failed to get stats", err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, stats)
}

func (a *App) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.logger.Error(msg,
		zap.String("uri", r.RequestURI),
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.Error(err),
	)
	a.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func (a *App) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSONResponse(w, status, models.ErrorResponse{Error: msg})
}

// writeJSONResponse пишет JSON-ответ с проверкой ошибок
func (a *App) writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("Failed to encode JSON", zap.Error(err))
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		a.logger.Warn("Failed to write response", zap.Error(err))
	}
}
