package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"velora/internal/domain"
	"velora/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves the service catalog through a read-through cache.
// The catalog changes rarely, so every listing is held for the TTL and the
// backend is hit only on expiry.
type CatalogService struct {
	backend domain.BackendClient
	ttl     time.Duration
	logger  *zerolog.Logger

	mu         sync.RWMutex
	categories []models.ServiceCategory
	services   map[string][]models.Service // categoryID -> services
	byID       map[string]*models.Service
	fetchedAt  time.Time
}

func NewCatalogService(backend domain.BackendClient, ttl time.Duration, logger *zerolog.Logger) *CatalogService {
	if ttl <= 0 {
		ttl = time.Duration(models.CatalogCacheTTL) * time.Second
	}
	return &CatalogService{
		backend:  backend,
		ttl:      ttl,
		logger:   logger,
		services: make(map[string][]models.Service),
		byID:     make(map[string]*models.Service),
	}
}

func (s *CatalogService) fresh() bool {
	return !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < s.ttl
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	s.mu.RLock()
	if s.fresh() {
		cached := s.categories
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	s.mu.Lock()
	s.categories = categories
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return categories, nil
}

func (s *CatalogService) ListServices(ctx context.Context, categoryID string) ([]models.Service, error) {
	s.mu.RLock()
	if cached, ok := s.services[categoryID]; ok && s.fresh() {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	services, err := s.backend.ListServices(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	s.mu.Lock()
	s.services[categoryID] = services
	for i := range services {
		svc := services[i]
		s.byID[svc.ID] = &svc
	}
	if s.fetchedAt.IsZero() {
		s.fetchedAt = time.Now()
	}
	s.mu.Unlock()

	return services, nil
}

// GetService resolves a single service, preferring whatever a previous
// listing already brought in.
func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	s.mu.RLock()
	if svc, ok := s.byID[id]; ok && s.fresh() {
		s.mu.RUnlock()
		return svc, nil
	}
	s.mu.RUnlock()

	svc, err := s.backend.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.byID[svc.ID] = svc
	s.mu.Unlock()

	return svc, nil
}

// Invalidate drops the cache so the next read goes to the backend.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = nil
	s.services = make(map[string][]models.Service)
	s.byID = make(map[string]*models.Service)
	s.fetchedAt = time.Time{}
	s.logger.Debug().Msg("catalog cache invalidated")
}
