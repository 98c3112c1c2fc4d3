package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/groundwork/internal/database"
	etlerr "github.com/stwalsh4118/groundwork/internal/errors"
	"github.com/stwalsh4118/groundwork/internal/models"
)

// RecordTx is one source record's transaction: every row derived from the
// record is written through it and committed or rolled back as a unit.
type RecordTx interface {
	// InsertProperty writes the root row and returns its generated identity.
	InsertProperty(ctx context.Context, p *models.Property) (int64, error)
	InsertDetail(ctx context.Context, d *models.PropertyDetail) error
	InsertValuation(ctx context.Context, v *models.PropertyValuation) error
	InsertRehabEstimate(ctx context.Context, r *models.PropertyRehabEstimate) error
	InsertHoaData(ctx context.Context, h *models.PropertyHoaData) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RecordRepository hands out per-record transactions and answers the
// property deduplication lookup.
type RecordRepository interface {
	Begin(ctx context.Context) (RecordTx, error)

	// FindPropertyID looks up an existing property by its case-normalized
	// address natural key. The bool reports whether a row was found.
	FindPropertyID(ctx context.Context, key models.AddressKey) (int64, bool, error)

	// TouchProperty bumps updated_at on an existing property. This is the
	// only mutation the pipeline performs on persisted rows.
	TouchProperty(ctx context.Context, propertyID int64) error
}

type recordRepository struct {
	db *database.Database
}

// NewRecordRepository creates a RecordRepository backed by the pgx pool.
func NewRecordRepository(db *database.Database) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Begin(ctx context.Context) (RecordTx, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin record transaction: %w", err)
	}
	return &recordTx{tx: tx}, nil
}

func (r *recordRepository) FindPropertyID(ctx context.Context, key models.AddressKey) (int64, bool, error) {
	// Internal whitespace runs are collapsed to match models.NewAddressKey;
	// btrim alone would miss rows stored with doubled spaces.
	query := `
		SELECT property_id
		FROM properties
		WHERE regexp_replace(lower(btrim(address)), '\s+', ' ', 'g') = $1
		  AND regexp_replace(lower(btrim(COALESCE(city, ''))), '\s+', ' ', 'g') = $2
		  AND regexp_replace(lower(btrim(COALESCE(state, ''))), '\s+', ' ', 'g') = $3
		  AND regexp_replace(lower(btrim(COALESCE(zip_code, ''))), '\s+', ' ', 'g') = $4
		LIMIT 1
	`

	var id int64
	err := r.db.Pool.QueryRow(ctx, query, key.Address, key.City, key.State, key.ZipCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up property by address key: %w", err)
	}
	return id, true, nil
}

func (r *recordRepository) TouchProperty(ctx context.Context, propertyID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE properties SET updated_at = now() WHERE property_id = $1`, propertyID)
	if err != nil {
		return fmt.Errorf("failed to touch property %d: %w", propertyID, err)
	}
	return nil
}

// recordTx implements RecordTx over a pgx transaction. Insert failures are
// reported as WriteError so the loader can classify them.
type recordTx struct {
	tx pgx.Tx
}

func (t *recordTx) InsertProperty(ctx context.Context, p *models.Property) (int64, error) {
	query := `
		INSERT INTO properties
			(address, city, state, zip_code, county, latitude, longitude, property_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING property_id
	`

	var id int64
	err := t.tx.QueryRow(ctx, query,
		p.Address, p.City, p.State, p.ZipCode, p.County,
		p.Latitude, p.Longitude, p.PropertyType,
	).Scan(&id)
	if err != nil {
		return 0, &etlerr.WriteError{Table: "properties", Err: err}
	}
	p.ID = id
	return id, nil
}

func (t *recordTx) InsertDetail(ctx context.Context, d *models.PropertyDetail) error {
	query := `
		INSERT INTO property_details
			(property_id, bedrooms, bathrooms, square_feet, lot_size, year_built,
			 garage_spaces, basement, pool, fireplace)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING detail_id
	`

	err := t.tx.QueryRow(ctx, query,
		d.PropertyID, d.Bedrooms, d.Bathrooms, d.SquareFeet, d.LotSize,
		d.YearBuilt, d.GarageSpaces, d.Basement, d.Pool, d.Fireplace,
	).Scan(&d.ID)
	if err != nil {
		return &etlerr.WriteError{Table: "property_details", Err: err}
	}
	return nil
}

func (t *recordTx) InsertValuation(ctx context.Context, v *models.PropertyValuation) error {
	query := `
		INSERT INTO property_valuations
			(property_id, valuation_type_id, valuation_amount, valuation_date, source, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING valuation_id
	`

	err := t.tx.QueryRow(ctx, query,
		v.PropertyID, v.ValuationTypeID, v.Amount, v.Date, v.Source, v.ConfidenceScore,
	).Scan(&v.ID)
	if err != nil {
		return &etlerr.WriteError{Table: "property_valuations", Err: err}
	}
	return nil
}

func (t *recordTx) InsertRehabEstimate(ctx context.Context, r *models.PropertyRehabEstimate) error {
	query := `
		INSERT INTO property_rehab_estimates
			(property_id, category_id, estimated_cost, priority_level, timeline_days, notes, estimate_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING estimate_id
	`

	err := t.tx.QueryRow(ctx, query,
		r.PropertyID, r.CategoryID, r.EstimatedCost, string(r.Priority),
		r.TimelineDays, r.Notes, r.Date,
	).Scan(&r.ID)
	if err != nil {
		return &etlerr.WriteError{Table: "property_rehab_estimates", Err: err}
	}
	return nil
}

func (t *recordTx) InsertHoaData(ctx context.Context, h *models.PropertyHoaData) error {
	query := `
		INSERT INTO property_hoa_data
			(property_id, hoa_id, monthly_fee, special_assessment, amenities, restrictions, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING hoa_data_id
	`

	err := t.tx.QueryRow(ctx, query,
		h.PropertyID, h.HoaID, h.MonthlyFee, h.SpecialAssessment,
		h.Amenities, h.Restrictions, h.EffectiveDate,
	).Scan(&h.ID)
	if err != nil {
		return &etlerr.WriteError{Table: "property_hoa_data", Err: err}
	}
	return nil
}

func (t *recordTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return &etlerr.WriteError{Table: "commit", Err: err}
	}
	return nil
}

func (t *recordTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back record transaction: %w", err)
	}
	return nil
}
