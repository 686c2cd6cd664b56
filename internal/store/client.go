package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quantdesk/quantjobs/internal/store/model"
)

type Client interface {
	Create(ctx context.Context, client model.Client) (*model.Client, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context) (model.ClientList, error)
	Update(ctx context.Context, client model.Client) (*model.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type ClientStore struct {
	db *gorm.DB
}

var _ Client = (*ClientStore)(nil)

func NewClientStore(db *gorm.DB) Client {
	return &ClientStore{db: db}
}

func (s *ClientStore) Create(ctx context.Context, client model.Client) (*model.Client, error) {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if result := s.getDB(ctx).Create(&client); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating client: %w", result.Error)
	}
	return &client, nil
}

func (s *ClientStore) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if result := s.getDB(ctx).First(&client, "id = ?", id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying client: %w", result.Error)
	}
	return &client, nil
}

func (s *ClientStore) List(ctx context.Context) (model.ClientList, error) {
	var clients model.ClientList
	if result := s.getDB(ctx).Order("created_at ASC").Find(&clients); result.Error != nil {
		return nil, fmt.Errorf("listing clients: %w", result.Error)
	}
	return clients, nil
}

func (s *ClientStore) Update(ctx context.Context, client model.Client) (*model.Client, error) {
	existing, err := s.Get(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	if client.Name != "" {
		existing.Name = client.Name
	}
	if client.Email != "" {
		existing.Email = client.Email
	}

	if result := s.getDB(ctx).Save(existing); result.Error != nil {
		return nil, fmt.Errorf("updating client: %w", result.Error)
	}
	return existing, nil
}

func (s *ClientStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Client{ID: id})
	if result.Error != nil {
		return fmt.Errorf("deleting client: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *ClientStore) Count(ctx context.Context) (int, error) {
	var count int64
	if result := s.getDB(ctx).Model(&model.Client{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("counting clients: %w", result.Error)
	}
	return int(count), nil
}

func (s *ClientStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
