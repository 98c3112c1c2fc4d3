package repository

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/groundwork/internal/database"
	"github.com/stwalsh4118/groundwork/internal/models"
)

// MasterRepository reads and (for HOAs only) creates dimension rows.
// The valuation type and rehab category vocabularies are seeded by the
// schema provisioner and are strictly read-only here.
type MasterRepository interface {
	// ValuationTypeIDs returns type_name -> valuation_type_id for all
	// seeded valuation types.
	ValuationTypeIDs(ctx context.Context) (map[string]int64, error)

	// RehabCategoryIDs returns category_name -> category_id for all seeded
	// rehab categories.
	RehabCategoryIDs(ctx context.Context) (map[string]int64, error)

	// HoaAssociations returns every persisted HOA association.
	HoaAssociations(ctx context.Context) ([]models.HoaAssociation, error)

	// UpsertHoaAssociation creates the association if its name is new and
	// returns the row identity either way. Management company is filled in
	// on first sight and preserved afterwards.
	UpsertHoaAssociation(ctx context.Context, name string, managementCompany *string) (int64, error)
}

type masterRepository struct {
	db *database.Database
}

// NewMasterRepository creates a MasterRepository backed by the pgx pool.
func NewMasterRepository(db *database.Database) MasterRepository {
	return &masterRepository{db: db}
}

func (r *masterRepository) ValuationTypeIDs(ctx context.Context) (map[string]int64, error) {
	return r.nameIDMap(ctx,
		`SELECT type_name, valuation_type_id FROM valuation_types`,
		"valuation types")
}

func (r *masterRepository) RehabCategoryIDs(ctx context.Context) (map[string]int64, error) {
	return r.nameIDMap(ctx,
		`SELECT category_name, category_id FROM rehab_categories`,
		"rehab categories")
}

func (r *masterRepository) nameIDMap(ctx context.Context, query, what string) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", what, err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", what, err)
	}
	return out, nil
}

func (r *masterRepository) HoaAssociations(ctx context.Context) ([]models.HoaAssociation, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT hoa_id, hoa_name, management_company, contact_info FROM hoa_associations`)
	if err != nil {
		return nil, fmt.Errorf("failed to load hoa associations: %w", err)
	}
	defer rows.Close()

	var out []models.HoaAssociation
	for rows.Next() {
		var hoa models.HoaAssociation
		if err := rows.Scan(&hoa.ID, &hoa.Name, &hoa.ManagementCompany, &hoa.ContactInfo); err != nil {
			return nil, fmt.Errorf("failed to scan hoa association row: %w", err)
		}
		out = append(out, hoa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hoa association rows: %w", err)
	}
	return out, nil
}

func (r *masterRepository) UpsertHoaAssociation(ctx context.Context, name string, managementCompany *string) (int64, error) {
	// The no-op update makes RETURNING yield the id on conflict as well.
	query := `
		INSERT INTO hoa_associations (hoa_name, management_company)
		VALUES ($1, $2)
		ON CONFLICT (hoa_name) DO UPDATE
			SET management_company = COALESCE(hoa_associations.management_company, EXCLUDED.management_company)
		RETURNING hoa_id
	`

	var id int64
	if err := r.db.Pool.QueryRow(ctx, query, name, managementCompany).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert hoa association %q: %w", name, err)
	}
	return id, nil
}
