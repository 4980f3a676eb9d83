package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	tsclient "github.com/smartscheduler/backend/internal/infrastructure/clients/typesense"
)

// TypesenseProviderIndex implements provider directory search using Typesense
type TypesenseProviderIndex struct {
	client *tsclient.Client
}

var _ providers.ProviderSearch = (*TypesenseProviderIndex)(nil)

// NewTypesenseProviderIndex creates a new Typesense-backed provider index
func NewTypesenseProviderIndex(client *tsclient.Client) *TypesenseProviderIndex {
	return &TypesenseProviderIndex{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseProviderIndex) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Index upserts a provider document
func (a *TypesenseProviderIndex) Index(ctx context.Context, provider *entities.Provider) error {
	if provider == nil || provider.ID == "" {
		return fmt.Errorf("provider id is required for indexing")
	}

	_, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Upsert(ctx, providerDocument(provider))
	if err != nil {
		return fmt.Errorf("failed to index provider: %w", err)
	}
	return nil
}

// SearchBySpecialty returns providers whose specialties match the query
func (a *TypesenseProviderIndex) SearchBySpecialty(ctx context.Context, specialty string, limit int) ([]*entities.Provider, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.TrimSpace(specialty)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("specialties,name"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}

	out := []*entities.Provider{}
	if result.Hits == nil {
		return out, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if p := providerFromDocument(*hit.Document); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func providerDocument(p *entities.Provider) map[string]interface{} {
	specialties := p.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"specialties": specialties,
	}
}

// Typesense hands documents back as loosely typed maps
func providerFromDocument(doc map[string]interface{}) *entities.Provider {
	id, _ := doc["id"].(string)
	if id == "" {
		return nil
	}
	name, _ := doc["name"].(string)

	p := &entities.Provider{ID: id, Name: name}
	if raw, ok := doc["specialties"].([]interface{}); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				p.Specialties = append(p.Specialties, str)
			}
		}
	}
	return p
}
