package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/abasto-labs/abasto/internal/entity"
	repo "github.com/abasto-labs/abasto/internal/repository/warehouse"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

// Service manages the warehouse registry.
type Service struct {
	repo *repo.Repository
}

// NewService wires a new Service instance.
func NewService(r *repo.Repository) *Service {
	return &Service{repo: r}
}

// Create persists a new warehouse.
func (s *Service) Create(ctx context.Context, warehouse *entity.Warehouse) error {
	if warehouse == nil || warehouse.Name == "" {
		return errorbank.BadRequest("warehouse name is required")
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, warehouse); err != nil {
		return errorbank.Internal("failed to create warehouse", errorbank.WithCause(err))
	}
	return nil
}

// Get fetches a warehouse by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Warehouse, error) {
	warehouse, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("warehouse not found")
		}
		return nil, errorbank.Internal("failed to load warehouse", errorbank.WithCause(err))
	}
	return warehouse, nil
}

// List returns all warehouses.
func (s *Service) List(ctx context.Context) ([]*entity.Warehouse, error) {
	warehouses, err := s.repo.List(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to list warehouses", errorbank.WithCause(err))
	}
	return warehouses, nil
}

// Update persists name and location changes.
func (s *Service) Update(ctx context.Context, warehouse *entity.Warehouse) error {
	if warehouse == nil || warehouse.ID == 0 {
		return errorbank.BadRequest("warehouse id is required")
	}
	if warehouse.Name == "" {
		return errorbank.BadRequest("warehouse name is required")
	}
	if err := s.repo.Update(ctx, warehouse); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("warehouse not found")
		}
		return errorbank.Internal("failed to update warehouse", errorbank.WithCause(err))
	}
	return nil
}

// Delete removes a warehouse. Products keep their rows; the reference is
// nullable.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("warehouse not found")
		}
		return errorbank.Internal("failed to delete warehouse", errorbank.WithCause(err))
	}
	return nil
}
