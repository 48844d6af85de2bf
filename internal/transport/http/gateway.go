package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"
	"trivia-night/internal/app"
	"trivia-night/internal/domain"
)

// maxBodyBytes bounds PUT bodies; JSON escaping can inflate a document past the store ceiling.
const maxBodyBytes = 8 << 20

// Gateway exposes an app.Store over HTTP so remote participants share one document store.
type Gateway struct {
	store         app.Store
	logger        *slog.Logger
	watchInterval time.Duration
	reads         singleflight.Group
	upgrader      websocket.Upgrader
}

func NewGateway(store app.Store, logger *slog.Logger, watchInterval time.Duration) *Gateway {
	if watchInterval <= 0 {
		watchInterval = app.DefaultPollInterval
	}
	return &Gateway{
		store:         store,
		logger:        logger,
		watchInterval: watchInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the gateway router.
func (g *Gateway) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(g.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", g.health)
	r.Route("/v1/documents", func(r chi.Router) {
		r.Get("/", g.list)
		r.Get("/{key}", g.get)
		r.Put("/{key}", g.put)
		r.Delete("/{key}", g.delete)
	})
	r.Get("/v1/watch/{key}", g.watch)
	return r
}

type putRequest struct {
	Value string `json:"value"`
}

type deleteResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
	Shared  bool   `json:"shared"`
}

type listResponse struct {
	Keys   []string `json:"keys"`
	Prefix string   `json:"prefix"`
	Shared bool     `json:"shared"`
}

type lookup struct {
	rec app.Record
	ok  bool
}

func (g *Gateway) get(w http.ResponseWriter, r *http.Request) {
	key, shared, ok := documentParams(w, r)
	if !ok {
		return
	}
	// Every participant polls the same key; concurrent reads share one store round-trip.
	// The shared call must outlive the first caller, so it drops that request's cancellation.
	readCtx := context.WithoutCancel(r.Context())
	v, err, _ := g.reads.Do(strconv.FormatBool(shared)+"|"+key, func() (interface{}, error) {
		rec, found, err := g.store.Get(readCtx, key, shared)
		return lookup{rec: rec, ok: found}, err
	})
	if err != nil {
		g.writeStoreError(w, r, err)
		return
	}
	res := v.(lookup)
	if !res.ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, res.rec)
}

func (g *Gateway) put(w http.ResponseWriter, r *http.Request) {
	key, shared, ok := documentParams(w, r)
	if !ok {
		return
	}
	var req putRequest
	if err := readJSON(w, r, &req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	rec, err := g.store.Set(r.Context(), key, req.Value, shared)
	if err != nil {
		g.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (g *Gateway) delete(w http.ResponseWriter, r *http.Request) {
	key, shared, ok := documentParams(w, r)
	if !ok {
		return
	}
	if err := g.store.Delete(r.Context(), key, shared); err != nil {
		g.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Key: key, Deleted: true, Shared: shared})
}

func (g *Gateway) list(w http.ResponseWriter, r *http.Request) {
	shared, err := parseShared(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shared flag")
		return
	}
	prefix := r.URL.Query().Get("prefix")
	keys, err := g.store.List(r.Context(), prefix, shared)
	if err != nil {
		g.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Keys: keys, Prefix: prefix, Shared: shared})
}

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	pinger, ok := g.store.(app.Pinger)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		g.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		g.logger.Error("store failure", "path", r.URL.Path, "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "store failure")
	}
}

func documentParams(w http.ResponseWriter, r *http.Request) (string, bool, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid key")
		return "", false, false
	}
	shared, err := parseShared(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shared flag")
		return "", false, false
	}
	return key, shared, true
}

func parseShared(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("shared")
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
