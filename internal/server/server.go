// Package server exposes the control plane's REST surface: cluster and
// deployment commands, catalog queries and volume management, all as
// snake_case JSON. Errors arrive pre-classified from the orchestrator
// and map onto {"detail": ...} bodies per the taxonomy.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/datainfrapilot/dip/internal/catalog"
	"github.com/datainfrapilot/dip/internal/metrics"
	"github.com/datainfrapilot/dip/internal/orchestrator"
)

// Server carries the handler dependencies.
type Server struct {
	orch    *orchestrator.Orchestrator
	catalog *catalog.Catalog
	logger  *zap.Logger

	// healthClient performs the proxy health checks on behalf of the UI.
	healthClient *http.Client
}

// New creates the HTTP server façade.
func New(orch *orchestrator.Orchestrator, cat *catalog.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		orch:    orch,
		catalog: cat,
		logger:  logger,
		healthClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Router assembles all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(s.countRequests)

	r.Route("/clusters", func(r chi.Router) {
		r.Get("/", s.listClusters)
		r.Post("/", s.createCluster)
		r.Route("/{clusterID}", func(r chi.Router) {
			r.Get("/", s.getCluster)
			r.Delete("/", s.deleteCluster)
			r.Get("/kubeconfig", s.kubeconfig)
			r.Route("/deployments", func(r chi.Router) {
				r.Post("/", s.createDeployment)
				r.Post("/check-endpoint-existence", s.checkEndpointExistence)
				r.Post("/{deploymentID}", s.updateDeployment)
				r.Delete("/{deploymentID}", s.deleteDeployment)
				r.Get("/{deploymentID}/credentials", s.deploymentCredentials)
			})
		})
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", s.listApplications)
		r.Get("/{applicationID}/versions", s.applicationVersions)
		r.Get("/{applicationID}/access_endpoints", s.applicationEndpoints)
	})

	r.Route("/volumes", func(r chi.Router) {
		r.Get("/", s.listVolumes)
		r.Post("/", s.createVolume)
		r.Delete("/{volumeID}", s.deleteVolume)
	})

	r.Get("/providers/{provider}/node_types", s.providerNodeTypes)
	r.Get("/providers/{provider}/regions", s.providerRegions)

	r.Get("/deployments/proxy-health-check", s.proxyHealthCheck)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// countRequests records the route-level request counter after the
// handler ran, when chi knows the matched pattern.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		metrics.HTTPRequests.WithLabelValues(r.Method, route, statusLabel(ww.Status())).Inc()
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
