// Package mappers converts between store models and API types.
package mappers

import (
	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

func JobToAPI(j *model.Job) api.Job {
	out := api.Job{
		ID:            j.ID,
		ClientID:      j.ClientID,
		ClientName:    j.ClientName,
		PortfolioID:   j.PortfolioID,
		PortfolioName: j.PortfolioName,
		Type:          api.JobType(j.Type),
		Product:       api.Product(j.Product),
		Algo:          api.Algo(j.Algo),
		Priority:      api.Priority(j.Priority),
		Submitter:     j.Submitter,
		Status:        api.JobStatus(j.Status),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		DurationSec:   j.DurationSec,
	}
	if j.Params != nil {
		out.Params = j.Params.Data
	}
	if j.Result != nil {
		out.Result = j.Result.Data
	}
	if j.Error != nil {
		out.Error = *j.Error
	}
	return out
}

func JobListToAPI(jobs model.JobList) []api.Job {
	out := make([]api.Job, 0, len(jobs))
	for i := range jobs {
		out = append(out, JobToAPI(&jobs[i]))
	}
	return out
}

func JobFromSubmission(sub api.JobSubmission) model.Job {
	return model.Job{
		ClientID:    sub.ClientID,
		PortfolioID: sub.PortfolioID,
		Type:        string(sub.Type),
		Product:     string(sub.Product),
		Algo:        string(sub.Algo),
		Priority:    string(sub.Priority),
		Submitter:   sub.Submitter,
		Params:      model.MakeJSONField(sub.Params),
	}
}

func ClientToAPI(c *model.Client) api.Client {
	return api.Client{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ClientListToAPI(clients model.ClientList) []api.Client {
	out := make([]api.Client, 0, len(clients))
	for i := range clients {
		out = append(out, ClientToAPI(&clients[i]))
	}
	return out
}

func PortfolioToAPI(p *model.Portfolio) api.Portfolio {
	return api.Portfolio{
		ID:        p.ID,
		ClientID:  p.ClientID,
		Name:      p.Name,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func PortfolioListToAPI(portfolios model.PortfolioList) []api.Portfolio {
	out := make([]api.Portfolio, 0, len(portfolios))
	for i := range portfolios {
		out = append(out, PortfolioToAPI(&portfolios[i]))
	}
	return out
}

func AssetToAPI(a *model.Asset) api.Asset {
	return api.Asset{
		ID:          a.ID,
		PortfolioID: a.PortfolioID,
		Ticker:      a.Ticker,
		Quantity:    a.Quantity,
	}
}

func AssetListToAPI(assets model.AssetList) []api.Asset {
	out := make([]api.Asset, 0, len(assets))
	for i := range assets {
		out = append(out, AssetToAPI(&assets[i]))
	}
	return out
}

func JobStatsToAPI(stats model.JobStatsResult) api.JobStats {
	out := api.JobStats{
		Total:    stats.Total,
		ByStatus: make(map[api.JobStatus]int, len(stats.ByStatus)),
		Recent:   JobListToAPI(stats.Recent),
		Running:  JobListToAPI(stats.Running),
	}
	for status, count := range stats.ByStatus {
		out.ByStatus[api.JobStatus(status)] = count
	}
	return out
}
