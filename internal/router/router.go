package router

import (
	"net/http"

	"rfq/internal/controller"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(c *controller.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", c.Ping)

		r.Group(func(r chi.Router) {
			r.Use(RequireActor)

			r.Post("/rfqs/new", c.NewRFQ)
			r.Post("/rfqs/sweep", c.Sweep)
			r.Get("/rfqs/my", c.MyRFQs)
			r.Get("/rfqs", c.RFQs)
			r.Get("/rfqs/{rfqId}", c.RFQ)
			r.Get("/rfqs/{rfqId}/status", c.RFQStatus)
			r.Get("/rfqs/{rfqId}/history", c.RFQHistory)
			r.Put("/rfqs/{rfqId}/quote", c.SubmitQuote)
			r.Put("/rfqs/{rfqId}/respond", c.Respond)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("page not found"))
	})

	return r
}
