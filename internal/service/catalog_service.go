package service

import (
	"context"

	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// CrimeTypeLister lists crime types present in the observation store
type CrimeTypeLister interface {
	ListCrimeTypes(ctx context.Context, measure models.Measure) ([]models.CrimeType, error)
}

// CatalogService exposes the crime taxonomy merged with stored data
type CatalogService struct {
	catalog *config.Catalog
	store   CrimeTypeLister
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog *config.Catalog, store CrimeTypeLister) *CatalogService {
	return &CatalogService{catalog: catalog, store: store}
}

// CrimeTypes returns the crime types with data for a measure. Names and
// categories come from the taxonomy when the store has none.
func (s *CatalogService) CrimeTypes(ctx context.Context, measure string) ([]models.CrimeType, error) {
	m, err := models.ParseMeasure(measure)
	if err != nil {
		return nil, err
	}
	types, err := s.store.ListCrimeTypes(ctx, m)
	if err != nil {
		return nil, err
	}
	for i, ct := range types {
		known, ok := s.catalog.Lookup(ct.Code)
		if !ok {
			continue
		}
		if ct.Name == "" || ct.Name == ct.Code {
			types[i].Name = known.Name
		}
		if ct.Category == "" {
			types[i].Category = known.Category
		}
	}
	return types, nil
}

// Categories returns the taxonomy grouped by category
func (s *CatalogService) Categories() []config.CrimeCategory {
	return s.catalog.Categories()
}
