// Package v1alpha1 exposes the REST surface under /api/v1.
package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/service"
)

type Handler struct {
	jobs       *service.JobService
	clients    *service.ClientService
	portfolios *service.PortfolioService
	market     market.Provider
	validate   *validator.Validate
	log        *zap.SugaredLogger
}

func NewHandler(
	jobs *service.JobService,
	clients *service.ClientService,
	portfolios *service.PortfolioService,
	m market.Provider,
) *Handler {
	return &Handler{
		jobs:       jobs,
		clients:    clients,
		portfolios: portfolios,
		market:     m,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        zap.S().Named("handlers"),
	}
}

// Routes mounts every v1 endpoint on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/", h.ListJobs)
		r.Get("/stats", h.JobStats)
		r.Get("/{id}", h.GetJob)
		r.Get("/{id}/paths", h.GetJobPaths)
	})

	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.CreateClient)
		r.Get("/", h.ListClients)
		r.Get("/stats", h.ClientStats)
		r.Get("/{id}", h.GetClient)
		r.Put("/{id}", h.UpdateClient)
		r.Delete("/{id}", h.DeleteClient)
		r.Post("/{id}/portfolios", h.CreatePortfolio)
		r.Get("/{id}/portfolios", h.ListPortfolios)
	})

	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/{id}", h.GetPortfolio)
		r.Put("/{id}", h.UpdatePortfolio)
		r.Delete("/{id}", h.DeletePortfolio)
		r.Post("/{id}/assets", h.UpsertAsset)
		r.Get("/{id}/assets", h.ListAssets)
	})
	r.Delete("/assets/{id}", h.DeleteAsset)

	r.Route("/market", func(r chi.Router) {
		r.Get("/lookup", h.MarketLookup)
		r.Get("/options/expirations", h.OptionExpirations)
		r.Get("/options/chain", h.OptionChain)
	})
}

type errorReply struct {
	Error string `json:"error"`
}

func (h *Handler) replyError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *service.ErrResourceNotFound
	var invalid *service.ErrInvalidRequest
	var conflict *service.ErrConflict

	switch {
	case errors.As(err, &notFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorReply{Error: err.Error()})
	case errors.As(err, &invalid):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorReply{Error: err.Error()})
	case errors.As(err, &conflict):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorReply{Error: err.Error()})
	default:
		h.log.Errorw("request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorReply{Error: "internal server error"})
	}
}

func (h *Handler) replyBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorReply{Error: msg})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
