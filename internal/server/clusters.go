package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/sshexec"
)

// clusterCreateRequest mirrors the cluster entity plus the secrets
// that never appear on reads.
type clusterCreateRequest struct {
	Name          string       `json:"name"`
	Provider      string       `json:"provider"`
	K3sVersion    string       `json:"k3s_version"`
	DomainName    string       `json:"domain_name"`
	ProviderToken string       `json:"provider_token"`
	Pools         []model.Pool `json:"pools"`

	Addons struct {
		TraefikDashboard struct {
			Enabled  bool   `json:"enabled"`
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"traefik_dashboard"`
	} `json:"additional_components"`
}

func (s *Server) listClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.orch.ListClusters(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if clusters == nil {
		clusters = []model.Cluster{}
	}
	writeJSON(w, http.StatusOK, clusters)
}

func (s *Server) createCluster(w http.ResponseWriter, r *http.Request) {
	var req clusterCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.K3sVersion == "" {
		req.K3sVersion = sshexec.DefaultK3sVersion
	}
	cluster := &model.Cluster{
		Name:       req.Name,
		Provider:   req.Provider,
		K3sVersion: req.K3sVersion,
		DomainName: req.DomainName,
		Pools:      req.Pools,
		Addons: model.AddonConfig{
			TraefikDashboard: model.TraefikDashboardConfig{
				Enabled:  req.Addons.TraefikDashboard.Enabled,
				Username: req.Addons.TraefikDashboard.Username,
				Password: req.Addons.TraefikDashboard.Password,
			},
		},
		Credentials: model.ClusterCredentials{
			ProviderToken: req.ProviderToken,
		},
	}

	created, err := s.orch.CreateCluster(r.Context(), cluster)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     created.ID,
		"name":   created.Name,
		"status": created.Status,
	})
}

func (s *Server) getCluster(w http.ResponseWriter, r *http.Request) {
	cluster, err := s.orch.GetCluster(r.Context(), chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cluster)
}

func (s *Server) deleteCluster(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeleteCluster(r.Context(), chi.URLParam(r, "clusterID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) kubeconfig(w http.ResponseWriter, r *http.Request) {
	kubeconfig, err := s.orch.Kubeconfig(r.Context(), chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(kubeconfig))
}
