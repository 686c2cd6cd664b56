package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/quantdesk/quantjobs/api/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/service/mappers"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/store/model"
)

type ClientService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewClientService(s store.Store) *ClientService {
	return &ClientService{
		store: s,
		log:   zap.S().Named("client_service"),
	}
}

func (s *ClientService) Create(ctx context.Context, form api.ClientForm) (*api.Client, error) {
	client, err := s.store.Client().Create(ctx, model.Client{
		Name:  form.Name,
		Email: form.Email,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrConflict("client %q already exists", form.Name)
		}
		return nil, err
	}
	s.log.Infow("client created", "id", client.ID, "name", client.Name)
	out := mappers.ClientToAPI(client)
	return &out, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*api.Client, error) {
	client, err := s.store.Client().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClientNotFound(id)
		}
		return nil, err
	}
	out := mappers.ClientToAPI(client)
	return &out, nil
}

func (s *ClientService) List(ctx context.Context) ([]api.Client, error) {
	clients, err := s.store.Client().List(ctx)
	if err != nil {
		return nil, err
	}
	return mappers.ClientListToAPI(clients), nil
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, form api.ClientForm) (*api.Client, error) {
	client, err := s.store.Client().Update(ctx, model.Client{
		ID:    id,
		Name:  form.Name,
		Email: form.Email,
	})
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClientNotFound(id)
		}
		return nil, err
	}
	out := mappers.ClientToAPI(client)
	return &out, nil
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Client().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrClientNotFound(id)
		}
		return err
	}
	s.log.Infow("client deleted", "id", id)
	return nil
}

func (s *ClientService) Stats(ctx context.Context) (*api.ClientStats, error) {
	stats, err := s.store.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &api.ClientStats{
		Clients:    stats.Clients,
		Portfolios: stats.Portfolios,
		Assets:     stats.Assets,
	}, nil
}
