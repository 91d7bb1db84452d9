package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/tourservice"
)

// maxImportBytes bounds one import request. Panoramas are large; a batch of
// a dozen phone captures fits comfortably.
const maxImportBytes = 200 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *tourservice.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when no event stream
// is wired (CLI export path).
func NewHandler(svc *tourservice.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

func (h *Handler) publishScene(kind, sceneID string) {
	if h.broker != nil {
		h.broker.PublishSceneEvent(kind, sceneID)
	}
}

func (h *Handler) publish(event sse.Event) {
	if h.broker != nil {
		h.broker.Publish(event)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody(verr.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// GetProject handles GET /api/project.
//
//	@Summary		Get the current project with its dangling link report
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	ProjectResponse
//	@Security		BearerAuth
//	@Router			/project [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p := h.svc.Project(r.Context())
	writeJSON(w, http.StatusOK, ProjectResponse{
		Project:       p,
		DanglingLinks: h.svc.DanglingLinks(r.Context()),
	})
}

// SetTitle handles PUT /api/project/title.
//
//	@Summary	Rename the tour
//	@Tags		project
//	@Accept		json
//	@Param		body	body	TitleRequest	true	"New title"
//	@Success	204
//	@Security	BearerAuth
//	@Router		/project/title [put]
func (h *Handler) SetTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SetTitle(r.Context(), req.Title); err != nil {
		writeError(w, "set title", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	w.WriteHeader(http.StatusNoContent)
}

// RenameScene handles PUT /api/scenes/{sceneID}/name.
func (h *Handler) RenameScene(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.RenameScene(r.Context(), chi.URLParam(r, "sceneID"), req.Name); err != nil {
		writeError(w, "rename scene", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	w.WriteHeader(http.StatusNoContent)
}

// SetInitialView handles PUT /api/scenes/{sceneID}/view.
func (h *Handler) SetInitialView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SetInitialView(r.Context(), chi.URLParam(r, "sceneID"), req.View()); err != nil {
		writeError(w, "set initial view", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/import (multipart/form-data, field "files").
//
//	@Summary	Import a batch of panoramas, one scene per file
//	@Tags		scenes
//	@Accept		multipart/form-data
//	@Produce	json
//	@Success	200	{object}	BatchReport
//	@Security	BearerAuth
//	@Router		/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request too large or invalid multipart"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'files' field in multipart form"))
		return
	}

	files := make([]tourservice.ImportFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("unreadable part "+fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("unreadable part "+fh.Filename))
			return
		}
		files = append(files, tourservice.ImportFile{Name: fh.Filename, Data: data})
	}

	report, err := h.svc.ImportBatch(r.Context(), files)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	for _, sc := range report.Imported {
		h.publishScene("imported", sc.SceneID)
	}
	writeJSON(w, http.StatusOK, report)
}

// ReimportScene handles PUT /api/scenes/{sceneID}/panorama
// (multipart/form-data, field "file"). The scene keeps its id, name, view,
// and hotspots; only the panorama is replaced.
func (h *Handler) ReimportScene(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request too large or invalid multipart"))
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unreadable part "+fh.Filename))
		return
	}

	sceneID := chi.URLParam(r, "sceneID")
	sc, err := h.svc.ReimportScene(r.Context(), sceneID, tourservice.ImportFile{Name: fh.Filename, Data: data})
	if err != nil {
		writeError(w, "reimport scene", err)
		return
	}
	h.publishScene("imported", sceneID)
	writeJSON(w, http.StatusOK, sc)
}

// DeleteScene handles DELETE /api/scenes/{sceneID}.
func (h *Handler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "sceneID")
	if err := h.svc.RemoveScene(r.Context(), sceneID); err != nil {
		writeError(w, "delete scene", err)
		return
	}
	h.publishScene("deleted", sceneID)
	w.WriteHeader(http.StatusNoContent)
}

// AddHotspot handles POST /api/scenes/{sceneID}/hotspots.
func (h *Handler) AddHotspot(w http.ResponseWriter, r *http.Request) {
	var req HotspotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	hs := req.Hotspot()
	if err := h.svc.AddHotspot(r.Context(), chi.URLParam(r, "sceneID"), hs); err != nil {
		writeError(w, "add hotspot", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	writeJSON(w, http.StatusCreated, hs)
}

// UpdateHotspot handles PUT /api/scenes/{sceneID}/hotspots/{hotspotID}.
func (h *Handler) UpdateHotspot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req HotspotPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sceneID := chi.URLParam(r, "sceneID")
	hotspotID := chi.URLParam(r, "hotspotID")
	if err := h.svc.UpdateHotspot(r.Context(), sceneID, hotspotID, req.Patch()); err != nil {
		writeError(w, "update hotspot", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	w.WriteHeader(http.StatusNoContent)
}

// DeleteHotspot handles DELETE /api/scenes/{sceneID}/hotspots/{hotspotID}.
func (h *Handler) DeleteHotspot(w http.ResponseWriter, r *http.Request) {
	sceneID := chi.URLParam(r, "sceneID")
	hotspotID := chi.URLParam(r, "hotspotID")
	if err := h.svc.RemoveHotspot(r.Context(), sceneID, hotspotID); err != nil {
		writeError(w, "delete hotspot", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	w.WriteHeader(http.StatusNoContent)
}

// ClearHotspots handles DELETE /api/scenes/{sceneID}/hotspots.
func (h *Handler) ClearHotspots(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHotspots(r.Context(), chi.URLParam(r, "sceneID")); err != nil {
		writeError(w, "clear hotspots", err)
		return
	}
	h.publish(sse.Event{Type: "project.updated"})
	w.WriteHeader(http.StatusNoContent)
}

// GetAsset handles GET /api/assets/{sceneID}: serves the normalized payload
// through the scene's preview handle.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	pv, err := h.svc.Preview(r.Context(), chi.URLParam(r, "sceneID"))
	if err != nil {
		writeError(w, "get asset", err)
		return
	}
	w.Header().Set("Content-Type", pv.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pv.Payload); err != nil {
		slog.Debug("asset write aborted", slog.String("error", err.Error()))
	}
}

// Export handles POST /api/export.
//
//	@Summary	Build a standalone bundle into the workspace
//	@Tags		export
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ExportRequest	true	"Export options"
//	@Success	200		{object}	ExportResponse
//	@Security	BearerAuth
//	@Router		/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ExportRequest
	// An empty body means default target, directory mode.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	files, err := h.svc.Export(r.Context(), req.Target, req.SingleFile)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	h.publish(sse.Event{Type: "export.completed", Data: map[string]any{"files": files}})
	writeJSON(w, http.StatusOK, ExportResponse{Files: files})
}
