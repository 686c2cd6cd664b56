package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/quantdesk/quantjobs/internal/compose"
	"github.com/quantdesk/quantjobs/internal/market"
)

func (h *Handler) MarketLookup(w http.ResponseWriter, r *http.Request) {
	ticker := compose.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		h.replyBadRequest(w, r, "ticker is required")
		return
	}

	look, err := h.market.Lookup(r.Context(), ticker)
	if err != nil {
		h.replyMarketError(w, r, err)
		return
	}
	render.JSON(w, r, look)
}

func (h *Handler) OptionExpirations(w http.ResponseWriter, r *http.Request) {
	ticker := compose.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		h.replyBadRequest(w, r, "ticker is required")
		return
	}

	exps, err := h.market.Expirations(r.Context(), ticker)
	if err != nil {
		h.replyMarketError(w, r, err)
		return
	}
	render.JSON(w, r, exps)
}

func (h *Handler) OptionChain(w http.ResponseWriter, r *http.Request) {
	ticker := compose.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		h.replyBadRequest(w, r, "ticker is required")
		return
	}
	expiry := r.URL.Query().Get("expiry")
	if expiry == "" {
		h.replyBadRequest(w, r, "expiry is required")
		return
	}

	chain, err := h.market.Chain(r.Context(), ticker, expiry)
	if err != nil {
		h.replyMarketError(w, r, err)
		return
	}
	render.JSON(w, r, chain)
}

func (h *Handler) replyMarketError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, market.ErrUnknownTicker) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorReply{Error: err.Error()})
		return
	}
	h.replyBadRequest(w, r, err.Error())
}
