package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
)

func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid client id")
		return
	}

	var form api.PortfolioForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		h.replyBadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		h.replyBadRequest(w, r, err.Error())
		return
	}

	portfolio, err := h.portfolios.Create(r.Context(), clientID, form)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, portfolio)
}

func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid client id")
		return
	}

	portfolios, err := h.portfolios.ListByClient(r.Context(), clientID)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, portfolios)
}

func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid portfolio id")
		return
	}

	portfolio, err := h.portfolios.Get(r.Context(), id)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, portfolio)
}

func (h *Handler) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid portfolio id")
		return
	}

	var form api.PortfolioForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		h.replyBadRequest(w, r, "invalid request body")
		return
	}

	portfolio, err := h.portfolios.Update(r.Context(), id, form)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, portfolio)
}

func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid portfolio id")
		return
	}

	if err := h.portfolios.Delete(r.Context(), id); err != nil {
		h.replyError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) UpsertAsset(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid portfolio id")
		return
	}

	var form api.AssetForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		h.replyBadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		h.replyBadRequest(w, r, err.Error())
		return
	}

	asset, err := h.portfolios.UpsertAsset(r.Context(), portfolioID, form)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, asset)
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid portfolio id")
		return
	}

	assets, err := h.portfolios.ListAssets(r.Context(), portfolioID)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, assets)
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid asset id")
		return
	}

	if err := h.portfolios.DeleteAsset(r.Context(), id); err != nil {
		h.replyError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
