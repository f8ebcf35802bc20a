package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
	"github.com/datainfrapilot/dip/internal/provider"
)

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}

func appID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "applicationID"))
	if err != nil {
		return 0, apperror.New(apperror.CodeValidation, "application id must be an integer")
	}
	return id, nil
}

func (s *Server) applicationVersions(w http.ResponseWriter, r *http.Request) {
	id, err := appID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	versions, err := s.catalog.Versions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) applicationEndpoints(w http.ResponseWriter, r *http.Request) {
	id, err := appID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := s.catalog.ByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app.Endpoints)
}

func (s *Server) providerNodeTypes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	nodeTypes := provider.NodeTypes(name)
	if nodeTypes == nil {
		writeError(w, apperror.Newf(apperror.CodeNotFound, "unknown provider %q", name))
		return
	}
	writeJSON(w, http.StatusOK, nodeTypes)
}

func (s *Server) providerRegions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	regions := provider.Regions(name)
	if regions == nil {
		writeError(w, apperror.Newf(apperror.CodeNotFound, "unknown provider %q", name))
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

type volumeCreateRequest struct {
	Name          string `json:"name"`
	Size          int    `json:"size"`
	Provider      string `json:"provider"`
	Region        string `json:"region"`
	Description   string `json:"description"`
	ProviderToken string `json:"provider_token"`
}

func (s *Server) listVolumes(w http.ResponseWriter, r *http.Request) {
	volumes, err := s.orch.ListVolumes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if volumes == nil {
		volumes = []model.Volume{}
	}
	writeJSON(w, http.StatusOK, volumes)
}

func (s *Server) createVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	volume := &model.Volume{
		Name:        req.Name,
		SizeGiB:     req.Size,
		Provider:    req.Provider,
		Region:      req.Region,
		Description: req.Description,
	}
	created, err := s.orch.CreateVolume(r.Context(), volume, req.ProviderToken)
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

func (s *Server) deleteVolume(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("provider_token")
	if err := s.orch.DeleteVolume(r.Context(), chi.URLParam(r, "volumeID"), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
