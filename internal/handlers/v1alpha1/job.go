package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/store"
)

func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var sub api.JobSubmission
	if err := render.DecodeJSON(r.Body, &sub); err != nil {
		h.replyBadRequest(w, r, "invalid request body")
		return
	}

	job, err := h.jobs.Submit(r.Context(), sub)
	if err != nil {
		h.replyError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, job)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid job id")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.NewJobQueryFilter()

	if raw := r.URL.Query().Get("clientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.replyBadRequest(w, r, "invalid clientId")
			return
		}
		filter = filter.ByClientID(id)
	}
	if raw := r.URL.Query().Get("portfolioId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.replyBadRequest(w, r, "invalid portfolioId")
			return
		}
		filter = filter.ByPortfolioID(id)
	}

	jobs, err := h.jobs.List(r.Context(), filter)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, jobs)
}

func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context())
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

func (h *Handler) GetJobPaths(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.replyBadRequest(w, r, "invalid job id")
		return
	}

	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		h.replyBadRequest(w, r, "invalid limit")
		return
	}
	stride, ok := queryInt(r, "stride", 0)
	if !ok {
		h.replyBadRequest(w, r, "invalid stride")
		return
	}

	paths, err := h.jobs.Paths(r.Context(), id, limit, stride)
	if err != nil {
		h.replyError(w, r, err)
		return
	}
	render.JSON(w, r, paths)
}

func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
