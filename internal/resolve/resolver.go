// Package resolve implements the entity resolver: natural keys for master
// rows are matched against an in-memory cache seeded from the database at
// batch start. The controlled vocabularies (valuation types, rehab
// categories) are lookup-only; HOA associations are created on first sight.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	etlerr "github.com/stwalsh4118/groundwork/internal/errors"
	"github.com/stwalsh4118/groundwork/internal/logger"
	"github.com/stwalsh4118/groundwork/internal/models"
	"github.com/stwalsh4118/groundwork/internal/repository"
)

// Resolver caches natural key -> generated identity for all master rows.
// The HOA cache takes writes during a run, so access is guarded for use by
// concurrent record workers.
type Resolver struct {
	masters repository.MasterRepository
	log     *logger.Logger

	mu           sync.RWMutex
	valuationIDs map[string]int64
	categoryIDs  map[string]int64
	hoaIDs       map[string]int64
}

// New creates an unseeded Resolver. Seed must be called before any lookup.
func New(masters repository.MasterRepository, log *logger.Logger) *Resolver {
	return &Resolver{
		masters:      masters,
		log:          log,
		valuationIDs: make(map[string]int64),
		categoryIDs:  make(map[string]int64),
		hoaIDs:       make(map[string]int64),
	}
}

// Seed loads the persisted master rows into the cache. Missing seed
// vocabularies are a provisioning failure and abort the run.
func (r *Resolver) Seed(ctx context.Context) error {
	valuations, err := r.masters.ValuationTypeIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed valuation types: %w", err)
	}
	categories, err := r.masters.RehabCategoryIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed rehab categories: %w", err)
	}
	hoas, err := r.masters.HoaAssociations(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed hoa associations: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.valuationIDs = make(map[string]int64, len(valuations))
	for name, id := range valuations {
		r.valuationIDs[naturalKey(name)] = id
	}
	r.categoryIDs = make(map[string]int64, len(categories))
	for name, id := range categories {
		r.categoryIDs[naturalKey(name)] = id
	}
	r.hoaIDs = make(map[string]int64, len(hoas))
	for _, hoa := range hoas {
		r.hoaIDs[naturalKey(hoa.Name)] = hoa.ID
	}

	for _, t := range models.ValuationTypes() {
		if _, ok := r.valuationIDs[naturalKey(t.String())]; !ok {
			return &etlerr.ConfigurationError{
				Reason: fmt.Sprintf("valuation_types is missing seeded type %q", t),
			}
		}
	}
	for _, c := range models.RehabCategories() {
		if _, ok := r.categoryIDs[naturalKey(c.String())]; !ok {
			return &etlerr.ConfigurationError{
				Reason: fmt.Sprintf("rehab_categories is missing seeded category %q", c),
			}
		}
	}

	r.log.Info("Resolver cache seeded", logger.Fields{
		"valuation_types":  len(r.valuationIDs),
		"rehab_categories": len(r.categoryIDs),
		"hoa_associations": len(r.hoaIDs),
	})
	return nil
}

// ValuationTypeID resolves a raw type name to its seeded row identity.
// Names that do not normalize to one of the five canonical types are a
// ResolutionError, never a new row.
func (r *Resolver) ValuationTypeID(name string) (int64, error) {
	t, ok := models.ParseValuationType(name)
	if !ok {
		return 0, &etlerr.ResolutionError{Kind: "valuation type", Name: name}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.valuationIDs[naturalKey(t.String())]
	if !ok {
		return 0, &etlerr.ResolutionError{Kind: "valuation type", Name: name}
	}
	return id, nil
}

// RehabCategoryID resolves a raw category name to its seeded row identity.
func (r *Resolver) RehabCategoryID(name string) (int64, error) {
	c, ok := models.ParseRehabCategory(name)
	if !ok {
		return 0, &etlerr.ResolutionError{Kind: "rehab category", Name: name}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.categoryIDs[naturalKey(c.String())]
	if !ok {
		return 0, &etlerr.ResolutionError{Kind: "rehab category", Name: name}
	}
	return id, nil
}

// ResolveOrCreateHoa returns the identity for an HOA natural key, creating
// the association on first sight. Two records naming the same HOA with
// different casing or whitespace land on the same row.
func (r *Resolver) ResolveOrCreateHoa(ctx context.Context, name string, managementCompany *string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, &etlerr.ResolutionError{Kind: "hoa association", Name: name}
	}
	key := naturalKey(trimmed)

	r.mu.RLock()
	id, ok := r.hoaIDs[key]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := r.masters.UpsertHoaAssociation(ctx, trimmed, managementCompany)
	if err != nil {
		return 0, fmt.Errorf("failed to create hoa association %q: %w", trimmed, err)
	}

	r.mu.Lock()
	r.hoaIDs[key] = id
	r.mu.Unlock()

	r.log.Debug("HOA association resolved", logger.Fields{
		"hoa_name": trimmed,
		"hoa_id":   id,
	})
	return id, nil
}

// naturalKey collapses case and whitespace for natural key matching.
func naturalKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
