package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

type deploymentRequest struct {
	Name          string                `json:"name"`
	ApplicationID int                   `json:"application_id"`
	NodePool      string                `json:"node_pool"`
	Config        model.ConfigMap       `json:"config"`
	Endpoints     []model.Endpoint      `json:"endpoints"`
	Volumes       []model.VolumeBinding `json:"volumes"`
}

func (r deploymentRequest) toModel() *model.Deployment {
	return &model.Deployment{
		Name:          r.Name,
		ApplicationID: r.ApplicationID,
		NodePool:      r.NodePool,
		Config:        r.Config,
		Endpoints:     r.Endpoints,
		Volumes:       r.Volumes,
	}
}

func (s *Server) createDeployment(w http.ResponseWriter, r *http.Request) {
	var req deploymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.orch.CreateDeployment(r.Context(), chi.URLParam(r, "clusterID"), req.toModel())
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

func (s *Server) updateDeployment(w http.ResponseWriter, r *http.Request) {
	var req deploymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.orch.UpdateDeployment(r.Context(),
		chi.URLParam(r, "clusterID"), chi.URLParam(r, "deploymentID"), req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     updated.ID,
		"name":   updated.Name,
		"status": updated.Status,
	})
}

func (s *Server) deleteDeployment(w http.ResponseWriter, r *http.Request) {
	err := s.orch.DeleteDeployment(r.Context(),
		chi.URLParam(r, "clusterID"), chi.URLParam(r, "deploymentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) deploymentCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.orch.Credentials(r.Context(),
		chi.URLParam(r, "clusterID"), chi.URLParam(r, "deploymentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

// checkEndpointExistence is the advisory per-keystroke check the UI
// polls; admission re-validates authoritatively.
func (s *Server) checkEndpointExistence(w http.ResponseWriter, r *http.Request) {
	var req model.Endpoint
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.AccessType.Valid() {
		writeError(w, apperror.Newf(apperror.CodeValidation, "unknown access type %q", req.AccessType))
		return
	}

	exists, err := s.orch.EndpointExists(r.Context(), chi.URLParam(r, "clusterID"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exists)
}

// proxyHealthCheck forwards a GET to the target and passes its status
// code through, so the browser can probe deployments across origins.
func (s *Server) proxyHealthCheck(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target_url")
	if target == "" {
		writeError(w, apperror.New(apperror.CodeValidation, "target_url is required"))
		return
	}
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeError(w, apperror.New(apperror.CodeValidation, "target_url must be an absolute http(s) URL"))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.CodeValidation, "invalid target_url", err))
		return
	}
	resp, err := s.healthClient.Do(req)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Detail: "target unreachable"})
		return
	}
	defer resp.Body.Close()
	writeJSON(w, resp.StatusCode, map[string]int{"status": resp.StatusCode})
}
