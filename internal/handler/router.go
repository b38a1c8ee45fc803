package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	convohandler "github.com/parleylab/parley/internal/handler/convo"
	"github.com/parleylab/parley/internal/handler/live"
	"github.com/parleylab/parley/internal/handler/stage"
	"github.com/parleylab/parley/internal/handler/stream"
	middlewarePkg "github.com/parleylab/parley/internal/middleware"
	convoservice "github.com/parleylab/parley/internal/service/convo"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(convoSvc *convoservice.Service, users stage.UserStore) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	convoHandler := convohandler.New(convoSvc)
	stageHandler := stage.New(users)
	streamHandler := stream.New(convoSvc)
	liveHandler := live.New(convoSvc)

	r.Route("/api", func(api chi.Router) {
		convoHandler.RegisterRoutes(api)
		stageHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
	})

	return r
}
