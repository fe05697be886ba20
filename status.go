package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

type statusSource interface {
	ListAll() ([]Subscription, error)
	GetMeta(key string) (string, error)
}

type statusResponse struct {
	ChecksCount   int64  `json:"checks_count"`
	LastCheckTS   int64  `json:"last_check_ts"`
	LastCheck     string `json:"last_check,omitempty"`
	Subscriptions int    `json:"subscriptions"`
}

// newStatusRouter serves read-only monitoring state for operators.
func newStatusRouter(src statusSource, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(httprate.Limit(
		60,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("rate limit exceeded", "ip", r.RemoteAddr, "path", r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}),
	))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		subs, err := src.ListAll()
		if err != nil {
			logger.Error("status: list subscriptions", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
			return
		}

		var res statusResponse
		res.Subscriptions = len(subs)

		for key, dst := range map[string]*int64{
			metaChecksCount: &res.ChecksCount,
			metaLastCheckTS: &res.LastCheckTS,
		} {
			raw, err := src.GetMeta(key)
			if err != nil {
				logger.Error("status: read meta", "key", key, "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
				return
			}
			*dst, _ = strconv.ParseInt(raw, 10, 64)
		}
		if res.LastCheckTS > 0 {
			res.LastCheck = time.Unix(res.LastCheckTS, 0).UTC().Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, res)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
