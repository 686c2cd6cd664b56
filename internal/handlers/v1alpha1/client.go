package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var form api.ClientForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		h.replyBadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		h.replyBadRequest(w, r, err.Error())
		return
	}

	client, err := h.clients.Create(r.Context(), form)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, client)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid client id")
		return
	}

	client, err := h.clients.Get(r.Context(), id)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, client)
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context())
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, clients)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid client id")
		return
	}

	var form api.ClientForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		h.replyBadRequest(w, r, "invalid request body")
		return
	}

	client, err := h.clients.Update(r.Context(), id, form)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, client)
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid client id")
		return
	}

	if err := h.clients.Delete(r.Context(), id); err != nil {
		h.replyError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) ClientStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.clients.Stats(r.Context())
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
