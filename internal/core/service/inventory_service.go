package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/port"
)

// InventoryService is the admin side of the inventory: listing and editing items.
type InventoryService struct {
	repo   port.InventoryRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewInventoryService(repo port.InventoryRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, logger: logger, now: time.Now}
}

func (s *InventoryService) List(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryItem, error) {
	items, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return filter.Apply(items), nil
}

func (s *InventoryService) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *InventoryService) Create(ctx context.Context, in domain.InventoryInput) (*domain.InventoryItem, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	item := in.ToItem()
	item.CreatedAt = s.now()
	item.UpdatedAt = item.CreatedAt

	id, err := s.repo.CreateInventoryItem(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id

	s.logger.Info("inventory item created", zap.Int64("item_id", id), zap.String("name", item.Name))
	return &item, nil
}

func (s *InventoryService) Update(ctx context.Context, id int64, in domain.InventoryInput) (*domain.InventoryItem, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	item := in.ToItem()
	item.ID = id
	item.UpdatedAt = s.now()

	if err := s.repo.UpdateInventoryItem(ctx, id, item); err != nil {
		return nil, err
	}

	s.logger.Info("inventory item updated", zap.Int64("item_id", id))
	return &item, nil
}

func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteInventoryItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("inventory item deleted", zap.Int64("item_id", id))
	return nil
}
