package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syllog-ai/syllog/internal/service"
	"github.com/syllog-ai/syllog/internal/store"
)

type SnapshotHandler struct {
	svc *service.SnapshotService
}

func NewSnapshotHandler(svc *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{svc: svc}
}

func (h *SnapshotHandler) Save(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	doc, err := h.svc.Save(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSnapshotNameEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSnapshotStoreMissing):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to save snapshot")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name":  name,
		"facts": len(doc.Facts),
		"rules": len(doc.Rules) + len(doc.DefeasibleRules),
	})
}

func (h *SnapshotHandler) Restore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.svc.Restore(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, service.ErrSnapshotNameEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSnapshotStoreMissing):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "snapshot not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to restore snapshot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "restored"})
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.List(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSnapshotStoreMissing) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": names, "count": len(names)})
}

func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.svc.Delete(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, service.ErrSnapshotNameEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSnapshotStoreMissing):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "snapshot not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete snapshot")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
