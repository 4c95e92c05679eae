package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/camapi"
	"github.com/technosupport/cctv-console/internal/cameras"
	"github.com/technosupport/cctv-console/internal/data"
	"github.com/technosupport/cctv-console/internal/views"
)

const maxBodyBytes = 1 << 20

type ConsoleHandler struct {
	Store *cameras.Store
	Log   zerolog.Logger
}

func NewConsoleHandler(store *cameras.Store, log zerolog.Logger) *ConsoleHandler {
	return &ConsoleHandler{Store: store, Log: log.With().Str("component", "console").Logger()}
}

type viewState struct {
	Cameras       []data.Camera `json:"cameras"`
	CurrentCamera *data.Camera  `json:"currentCamera"`
	Loading       bool          `json:"loading"`
	Error         *string       `json:"error"`
}

type viewModel struct {
	View   string            `json:"view"`
	Params map[string]string `json:"params"`
	State  viewState         `json:"state"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondUpstreamError reports a failed backend call: 504 for timeouts,
// 502 otherwise, carrying the backend status when there was one.
func (h *ConsoleHandler) respondUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	h.Log.Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("camera backend call failed")

	msg := err.Error()
	if msg == "" {
		msg = "camera backend request failed"
	}

	var se *camapi.StatusError
	switch {
	case errors.As(err, &se):
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": msg, "status": se.StatusCode})
	case camapi.IsTimeout(err):
		respondError(w, http.StatusGatewayTimeout, msg)
	default:
		respondError(w, http.StatusBadGateway, msg)
	}
}

func upstreamStatus(err error) int {
	if camapi.IsTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (h *ConsoleHandler) model(m views.Match) viewModel {
	st := h.Store.Snapshot()
	vm := viewModel{
		View:   m.View,
		Params: m.Params,
		State: viewState{
			Cameras:       st.Cameras,
			CurrentCamera: st.CurrentCamera,
			Loading:       st.Loading,
		},
	}
	if st.Error != "" {
		msg := st.Error
		vm.State.Error = &msg
	}
	return vm
}

// Render serves GET on a view: it runs the view's load action, then returns
// the view model.
func (h *ConsoleHandler) Render(w http.ResponseWriter, r *http.Request, m views.Match) {
	switch m.View {
	case views.Home:
		h.Store.FetchCameras(r.Context())
	case views.CameraDetail:
		id, err := strconv.ParseInt(m.Params["id"], 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid camera id: "+m.Params["id"])
			return
		}
		if _, err := h.Store.FetchCamera(r.Context(), id); err != nil {
			respondJSON(w, upstreamStatus(err), h.model(m))
			return
		}
	}
	respondJSON(w, http.StatusOK, h.model(m))
}

func cameraID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid camera id: "+raw)
		return 0, false
	}
	return id, true
}

func decodeFields(w http.ResponseWriter, r *http.Request) (data.Fields, bool) {
	var fields data.Fields
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return fields, true
}

// POST /cameras/add
func (h *ConsoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	cam, err := h.Store.CreateCamera(r.Context(), fields)
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cam)
}

// PUT /cameras/{id}
func (h *ConsoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := cameraID(w, r)
	if !ok {
		return
	}
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	cam, err := h.Store.UpdateCamera(r.Context(), id, fields)
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cam)
}

// DELETE /cameras/{id}
func (h *ConsoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := cameraID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteCamera(r.Context(), id); err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /cameras/{id}/start
func (h *ConsoleHandler) StartStream(w http.ResponseWriter, r *http.Request) {
	h.streamAction(w, r, h.Store.StartStream)
}

// POST /cameras/{id}/stop
func (h *ConsoleHandler) StopStream(w http.ResponseWriter, r *http.Request) {
	h.streamAction(w, r, h.Store.StopStream)
}

// POST /cameras/{id}/restart
func (h *ConsoleHandler) RestartStream(w http.ResponseWriter, r *http.Request) {
	h.streamAction(w, r, h.Store.RestartStream)
}

func (h *ConsoleHandler) streamAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id int64) (data.StreamStatus, error)) {
	id, ok := cameraID(w, r)
	if !ok {
		return
	}
	st, err := action(r.Context(), id)
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
