package api

import (
	"github.com/gin-gonic/gin"

	"localwire/config"
	"localwire/geo"
	"localwire/orchestrator"
	"localwire/scheduler"
	"localwire/storage"
)

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	store    *storage.Store
	orch     *orchestrator.Orchestrator
	sched    *scheduler.Scheduler
	resolver *geo.Resolver
	cfg      config.Config
}

func NewServer(store *storage.Store, orch *orchestrator.Orchestrator, sched *scheduler.Scheduler, resolver *geo.Resolver, cfg config.Config) *Server {
	return &Server{
		store:    store,
		orch:     orch,
		sched:    sched,
		resolver: resolver,
		cfg:      cfg,
	}
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	s.RegisterStatusRoutes(r)
	s.RegisterArticleRoutes(r)
	s.RegisterWeatherRoutes(r)
	s.RegisterSettingsRoutes(r)
	s.RegisterMaintenanceRoutes(r)
	return r
}
