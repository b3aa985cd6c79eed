package server

import (
	"net/http"
	"time"

	"cpi-server/server/handlers"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// CpiRoutes serves the CPI endpoints.
type CpiRoutes interface {
	GetCpi(w http.ResponseWriter, r *http.Request)
}

// PlotRoutes serves the plot index endpoints.
type PlotRoutes interface {
	GetPlotsNearby(w http.ResponseWriter, r *http.Request)
	Ping(w http.ResponseWriter, r *http.Request)
}

type Router struct {
	cpiHandler     CpiRoutes
	plotHandler    PlotRoutes
	router         *mux.Router
	requestTimeout time.Duration
}

// NewRouter creates a router with the app's routes.
func NewRouter(
	cpiHandler CpiRoutes,
	plotHandler PlotRoutes,
	router *mux.Router,
	requestTimeout time.Duration) *Router {
	return &Router{
		cpiHandler:     cpiHandler,
		plotHandler:    plotHandler,
		router:         router,
		requestTimeout: requestTimeout,
	}
}

func (r *Router) RegisterRoutes() {
	r.router.Use(handlers.RequestScope(r.requestTimeout))

	// expects ?xmin=&xmax=&ymin=&ymax= or ?id=, plus optional begin, end,
	// collection, band and scale
	r.router.HandleFunc("/api/plot", r.cpiHandler.GetCpi).Methods("GET")
	r.router.HandleFunc("/api/poly", r.cpiHandler.GetCpi).Methods("GET")

	// expects ?lat={latitude(float)}&lon={longitude(float)}&radius={km(float)}
	r.router.HandleFunc("/api/plots/nearby", r.plotHandler.GetPlotsNearby).Methods("GET")

	r.router.HandleFunc("/ping", r.plotHandler.Ping).Methods("GET")
}

// Handler wraps the mux router with CORS open to every origin, so preflight
// requests are answered before route matching.
func (r *Router) Handler() http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", handlers.REQUEST_ID_HEADER},
		ExposedHeaders: []string{handlers.REQUEST_ID_HEADER},
		MaxAge:         300,
	})(r.router)
}
