package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/models"
	"github.com/factoryos/console-sync/internal/repo"
	"github.com/factoryos/console-sync/internal/services"
	"github.com/factoryos/console-sync/internal/utils"
)

type mountRequest struct {
	Kind string `json:"kind"`
}

type mountResponse struct {
	services.PageInfo
	State any `json:"state"`
}

type machineRequest struct {
	Machine string `json:"machine"`
}

type nodeRequest struct {
	ID models.ID `json:"id"`
}

type chatRequest struct {
	Query string `json:"query"`
}

type toggleResponse struct {
	Source string `json:"source"`
	Active bool   `json:"active"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *Handlers) listPages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

func (h *Handlers) mountPage(w http.ResponseWriter, r *http.Request) {
	var req mountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := console.ParseKind(req.Kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	info, page, err := h.service.Mount(r.Context(), kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mountResponse{PageInfo: info, State: page.Snapshot()})
}

func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) {
	page, info, err := h.service.Get(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mountResponse{PageInfo: info, State: page.Snapshot()})
}

func (h *Handlers) unmountPage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unmount(chi.URLParam(r, "pageID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) selectMachine(w http.ResponseWriter, r *http.Request) {
	var req machineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	options, err := h.service.Options(chi.URLParam(r, "pageID"))
	if err == nil {
		err = options.SelectMachine(req.Machine)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options.State())
}

func (h *Handlers) toggleSource(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	options, err := h.service.Options(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	active, err := options.ToggleSource(source)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Source: source, Active: active})
}

func (h *Handlers) focusNode(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page, _, err := h.service.Get(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch p := page.(type) {
	case *console.ChatPage:
		err = p.FocusNode(req.ID)
	case *console.DashboardPage:
		err = p.Graph().SetActive(req.ID)
	default:
		err = fmt.Errorf("%s page has no graph: %w", page.Kind(), console.ErrInvalidInput)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) sendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page, err := h.service.Chat(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	// A failed send still lands in the log as a connection error message.
	err = h.service.Do(r.Context(), "chat_send", func(ctx context.Context) error {
		return page.Send(ctx, req.Query)
	})
	if err != nil && !repo.IsRequestFailure(err) && !repo.IsDecode(err) {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) refreshAlerts(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Compliance(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.Do(r.Context(), "alerts_refresh", page.Refresh); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) selectAlert(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Compliance(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := page.Select(models.ID(chi.URLParam(r, "alertID"))); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) resolveAlert(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Compliance(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	id := models.ID(chi.URLParam(r, "alertID"))
	err = h.service.Do(r.Context(), "alert_resolve", func(ctx context.Context) error {
		return page.Resolve(ctx, id)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) simulate(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Compliance(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := page.Simulate(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, page.Simulation().State())
}

func (h *Handlers) upload(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Dashboard(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected a multipart form"})
		return
	}

	page.OpenUpload()
	if file, header, err := r.FormFile("file"); err == nil {
		content, readErr := io.ReadAll(file)
		_ = file.Close()
		if readErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read file", Field: "file"})
			return
		}
		page.SetUploadFile(header.Filename, content)
	}
	if machine, ok := r.MultipartForm.Value["machinery"]; ok && len(machine) > 0 {
		if err := page.SetUploadTarget(machine[0]); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if manualType := r.FormValue("manual_type"); manualType != "" {
		page.SetManualType(manualType)
	}

	err = h.service.Do(r.Context(), "ingest", page.SubmitUpload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) createMachine(w http.ResponseWriter, r *http.Request) {
	var form models.MachineForm
	if !decodeBody(w, r, &form) {
		return
	}
	page, err := h.service.Dashboard(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	page.OpenMachine()
	page.SetMachineForm(form)
	if err := h.service.Do(r.Context(), "create_machine", page.SubmitMachine); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) createTechnician(w http.ResponseWriter, r *http.Request) {
	var form models.TechnicianForm
	if !decodeBody(w, r, &form) {
		return
	}
	page, err := h.service.Resources(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	page.SetTechnician(form)
	if err := h.service.Do(r.Context(), "create_technician", page.SubmitTechnician); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var form models.TaskForm
	if !decodeBody(w, r, &form) {
		return
	}
	page, err := h.service.Resources(chi.URLParam(r, "pageID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	page.SetTask(form)
	if err := h.service.Do(r.Context(), "create_task", page.SubmitTask); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSnapshot(w, page)
}

func (h *Handlers) writeSnapshot(w http.ResponseWriter, page console.Page) {
	writeJSON(w, http.StatusOK, page.Snapshot())
}

// statusFor maps page errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, console.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPageNotFound), errors.Is(err, console.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, console.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, console.ErrDisposed):
		return http.StatusGone
	case repo.IsRequestFailure(err), repo.IsDecode(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: utils.UserMessage(err)}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}
	var reqErr *repo.RequestError
	if errors.As(err, &reqErr) {
		resp.Error = reqErr.Message()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSON(w, status, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
