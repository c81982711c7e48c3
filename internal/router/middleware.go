package router

import (
	"encoding/json"
	"net/http"
	"time"

	"rfq/internal/controller"
	"rfq/internal/logging"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// ActorHeader carries the id of the user authenticated by the gateway.
const ActorHeader = "X-User-Id"

// Logging puts a request scoped logrus entry into the context and writes an
// access log line once the request is served.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), entry)))

		entry.WithFields(log.Fields{
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(started).String(),
		}).Info("Request served")
	})
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+ActorHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActor rejects requests without an acting user.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := r.Header.Get(ActorHeader)
		if len(userId) == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(controller.ErrorResponse{
				Reason: "empty " + ActorHeader + " header supplied",
				Kind:   "invalid_user",
			})
			return
		}

		ctx := controller.WithActor(r.Context(), userId)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithField("actor", userId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
