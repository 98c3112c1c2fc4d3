package repository

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/groundwork/internal/database"
)

// LoadedTables lists the eight tables the pipeline writes or reads, in
// reporting order.
var LoadedTables = []string{
	"properties",
	"property_details",
	"hoa_associations",
	"property_hoa_data",
	"valuation_types",
	"property_valuations",
	"rehab_categories",
	"property_rehab_estimates",
}

// namedCount is one labelled COUNT(*) check.
type namedCount struct {
	name  string
	query string
}

// Orphaned foreign key checks: fact rows whose referenced row is missing.
var orphanChecks = []namedCount{
	{"property_details.property_id", `
		SELECT COUNT(*) FROM property_details pd
		LEFT JOIN properties p ON pd.property_id = p.property_id
		WHERE p.property_id IS NULL`},
	{"property_hoa_data.property_id", `
		SELECT COUNT(*) FROM property_hoa_data phd
		LEFT JOIN properties p ON phd.property_id = p.property_id
		WHERE p.property_id IS NULL`},
	{"property_hoa_data.hoa_id", `
		SELECT COUNT(*) FROM property_hoa_data phd
		LEFT JOIN hoa_associations h ON phd.hoa_id = h.hoa_id
		WHERE phd.hoa_id IS NOT NULL AND h.hoa_id IS NULL`},
	{"property_valuations.property_id", `
		SELECT COUNT(*) FROM property_valuations pv
		LEFT JOIN properties p ON pv.property_id = p.property_id
		WHERE p.property_id IS NULL`},
	{"property_valuations.valuation_type_id", `
		SELECT COUNT(*) FROM property_valuations pv
		LEFT JOIN valuation_types vt ON pv.valuation_type_id = vt.valuation_type_id
		WHERE vt.valuation_type_id IS NULL`},
	{"property_rehab_estimates.property_id", `
		SELECT COUNT(*) FROM property_rehab_estimates pre
		LEFT JOIN properties p ON pre.property_id = p.property_id
		WHERE p.property_id IS NULL`},
	{"property_rehab_estimates.category_id", `
		SELECT COUNT(*) FROM property_rehab_estimates pre
		LEFT JOIN rehab_categories rc ON pre.category_id = rc.category_id
		WHERE rc.category_id IS NULL`},
}

// Range checks re-derive the declared value invariants from persisted rows.
var rangeChecks = []namedCount{
	{"properties with missing address", `
		SELECT COUNT(*) FROM properties WHERE address IS NULL OR btrim(address) = ''`},
	{"properties with invalid coordinates", `
		SELECT COUNT(*) FROM properties
		WHERE latitude < -90 OR latitude > 90 OR longitude < -180 OR longitude > 180`},
	{"details with invalid bedrooms", `
		SELECT COUNT(*) FROM property_details WHERE bedrooms < 0 OR bedrooms > 50`},
	{"details with invalid bathrooms", `
		SELECT COUNT(*) FROM property_details WHERE bathrooms < 0 OR bathrooms > 50`},
	{"details with invalid square feet", `
		SELECT COUNT(*) FROM property_details WHERE square_feet < 100 OR square_feet > 50000`},
	{"valuations with non-positive amounts", `
		SELECT COUNT(*) FROM property_valuations WHERE valuation_amount <= 0`},
	{"valuations with invalid confidence", `
		SELECT COUNT(*) FROM property_valuations WHERE confidence_score < 0 OR confidence_score > 1`},
	{"rehab estimates with non-positive costs", `
		SELECT COUNT(*) FROM property_rehab_estimates WHERE estimated_cost <= 0`},
}

// Duplicate checks count natural keys that appear more than once.
var duplicateChecks = []namedCount{
	{"duplicate property address keys", `
		SELECT COALESCE(SUM(cnt - 1), 0) FROM (
			SELECT COUNT(*) AS cnt FROM properties
			GROUP BY regexp_replace(lower(btrim(address)), '\s+', ' ', 'g'),
			         regexp_replace(lower(btrim(COALESCE(city, ''))), '\s+', ' ', 'g'),
			         regexp_replace(lower(btrim(COALESCE(state, ''))), '\s+', ' ', 'g'),
			         regexp_replace(lower(btrim(COALESCE(zip_code, ''))), '\s+', ' ', 'g')
			HAVING COUNT(*) > 1
		) d`},
	{"duplicate hoa association names", `
		SELECT COALESCE(SUM(cnt - 1), 0) FROM (
			SELECT COUNT(*) AS cnt FROM hoa_associations
			GROUP BY regexp_replace(lower(btrim(hoa_name)), '\s+', ' ', 'g')
			HAVING COUNT(*) > 1
		) d`},
}

// StatsRepository runs the read-only queries behind the post-load validation
// report. It never mutates data.
type StatsRepository interface {
	TableCounts(ctx context.Context) (map[string]int64, error)
	OrphanCounts(ctx context.Context) (map[string]int64, error)
	RangeViolations(ctx context.Context) (map[string]int64, error)
	DuplicateCounts(ctx context.Context) (map[string]int64, error)
}

type statsRepository struct {
	db *database.Database
}

// NewStatsRepository creates a StatsRepository backed by the pgx pool.
func NewStatsRepository(db *database.Database) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) TableCounts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(LoadedTables))
	for _, table := range LoadedTables {
		var count int64
		// Table names come from the fixed list above, never from input.
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		out[table] = count
	}
	return out, nil
}

func (r *statsRepository) OrphanCounts(ctx context.Context) (map[string]int64, error) {
	return r.runChecks(ctx, orphanChecks)
}

func (r *statsRepository) RangeViolations(ctx context.Context) (map[string]int64, error) {
	return r.runChecks(ctx, rangeChecks)
}

func (r *statsRepository) DuplicateCounts(ctx context.Context) (map[string]int64, error) {
	return r.runChecks(ctx, duplicateChecks)
}

func (r *statsRepository) runChecks(ctx context.Context, checks []namedCount) (map[string]int64, error) {
	out := make(map[string]int64, len(checks))
	for _, check := range checks {
		var count int64
		if err := r.db.Pool.QueryRow(ctx, check.query).Scan(&count); err != nil {
			return nil, fmt.Errorf("check %q failed: %w", check.name, err)
		}
		out[check.name] = count
	}
	return out, nil
}
