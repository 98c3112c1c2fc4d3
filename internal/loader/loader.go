// Package loader implements the load orchestrator: it drives each raw
// record through normalize -> resolve -> write inside its own transaction,
// in foreign key dependency order, and reports what happened to every
// record in the batch.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	etlerr "github.com/stwalsh4118/groundwork/internal/errors"
	"github.com/stwalsh4118/groundwork/internal/logger"
	"github.com/stwalsh4118/groundwork/internal/normalize"
	"github.com/stwalsh4118/groundwork/internal/repository"
	"github.com/stwalsh4118/groundwork/internal/resolve"
)

// RecordState names a record's position in the per-record state machine.
type RecordState string

const (
	StatePending     RecordState = "pending"
	StateNormalizing RecordState = "normalizing"
	StateResolving   RecordState = "resolving"
	StateWriting     RecordState = "writing"
	StateCommitted   RecordState = "committed"
	StateRolledBack  RecordState = "rolled_back"
)

// RecordFailure describes one rejected record with every reason found.
type RecordFailure struct {
	Index   int         `json:"index"`
	Address string      `json:"address,omitempty"`
	State   RecordState `json:"state"`
	Reasons []string    `json:"reasons"`
}

// LoadReport summarizes one batch. Inserted, skipped-duplicate, and failed
// counts are surfaced separately; silent data loss is not allowed.
type LoadReport struct {
	RunID     string          `json:"runId"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	Total     int             `json:"total"`
	Inserted  int             `json:"inserted"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Failures  []RecordFailure `json:"failures,omitempty"`
}

// Loader sequences the transactional load of a batch of raw records.
type Loader struct {
	records    repository.RecordRepository
	resolver   *resolve.Resolver
	normalizer *normalize.Normalizer
	log        *logger.Logger
}

// New creates a Loader. The resolver must already be seeded.
func New(records repository.RecordRepository, resolver *resolve.Resolver, normalizer *normalize.Normalizer, log *logger.Logger) *Loader {
	return &Loader{
		records:    records,
		resolver:   resolver,
		normalizer: normalizer,
		log:        log,
	}
}

// LoadBatch processes the raw records sequentially, each in its own
// transaction. A record failure rolls back only that record; the batch
// continues. Cancellation is honored at record boundaries: the returned
// report covers everything processed before the abort.
func (l *Loader) LoadBatch(ctx context.Context, rawRecords []map[string]interface{}) (*LoadReport, error) {
	report := &LoadReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Total:     len(rawRecords),
	}
	log := l.log.WithRunID(report.RunID)

	log.Info("Starting batch load", logger.Fields{
		"records": len(rawRecords),
	})

	for i, raw := range rawRecords {
		// Checkpoint between records; an in-flight record always runs to
		// commit or rollback.
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.StartedAt)
			log.Warn("Batch aborted between records", logger.Fields{
				"processed": i,
				"total":     len(rawRecords),
			})
			return report, fmt.Errorf("batch aborted after %d of %d records: %w", i, len(rawRecords), err)
		}

		l.loadRecord(ctx, i, raw, report, log)
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info("Batch load complete", logger.Fields{
		"total":    report.Total,
		"inserted": report.Inserted,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	})
	return report, nil
}

// loadRecord drives one record through the state machine and updates the
// report accordingly.
func (l *Loader) loadRecord(ctx context.Context, index int, raw map[string]interface{}, report *LoadReport, log *logger.Logger) {
	state := StateNormalizing
	address := l.rawAddress(raw)

	fail := func(reasons ...string) {
		report.Failed++
		report.Failures = append(report.Failures, RecordFailure{
			Index:   index,
			Address: address,
			State:   state,
			Reasons: reasons,
		})
		log.Warn("Record rejected", logger.Fields{
			"index":   index,
			"state":   string(state),
			"reasons": reasons,
		})
	}

	rec, err := l.normalizer.Normalize(raw)
	if err != nil {
		if fieldErrs, ok := err.(etlerr.FieldErrors); ok {
			fail(fieldErrs.Reasons()...)
		} else {
			fail(err.Error())
		}
		return
	}
	address = rec.Property.Address

	// Duplicate property: skip and log, never overwrite. The existing
	// row's update timestamp is touched so re-runs are visible.
	existingID, found, err := l.records.FindPropertyID(ctx, rec.Property.Key())
	if err != nil {
		fail(err.Error())
		return
	}
	if found {
		if err := l.records.TouchProperty(ctx, existingID); err != nil {
			fail(err.Error())
			return
		}
		report.Skipped++
		log.Info("Skipping duplicate property", logger.Fields{
			"index":       index,
			"address":     rec.Property.Address,
			"property_id": existingID,
		})
		return
	}

	// Resolve every master reference before opening the transaction so a
	// vocabulary mismatch never costs a rollback.
	state = StateResolving
	for vi := range rec.Valuations {
		id, err := l.resolver.ValuationTypeID(rec.Valuations[vi].TypeName)
		if err != nil {
			fail(err.Error())
			return
		}
		rec.Valuations[vi].ValuationTypeID = id
	}
	for ri := range rec.Rehabs {
		id, err := l.resolver.RehabCategoryID(rec.Rehabs[ri].CategoryName)
		if err != nil {
			fail(err.Error())
			return
		}
		rec.Rehabs[ri].CategoryID = id
	}
	// HOA associations are open dimension rows created outside the record
	// transaction: they stay valid even if this record later rolls back.
	for hi := range rec.HoaData {
		row := &rec.HoaData[hi]
		if row.HoaName == nil {
			continue
		}
		id, err := l.resolver.ResolveOrCreateHoa(ctx, *row.HoaName, row.ManagementCompany)
		if err != nil {
			fail(err.Error())
			return
		}
		row.HoaID = &id
	}

	state = StateWriting
	if err := l.writeRecord(ctx, rec); err != nil {
		state = StateRolledBack
		fail(err.Error())
		return
	}

	state = StateCommitted
	report.Inserted++
	log.Debug("Record committed", logger.Fields{
		"index":       index,
		"address":     rec.Property.Address,
		"property_id": rec.Property.ID,
		"valuations":  len(rec.Valuations),
		"rehabs":      len(rec.Rehabs),
		"hoa_rows":    len(rec.HoaData),
	})
}

// writeRecord performs the ordered writes for one record inside a single
// transaction: the property row first to obtain its identity, then its
// dependents. Any failure rolls the whole record back.
func (l *Loader) writeRecord(ctx context.Context, rec *normalize.Record) error {
	tx, err := l.records.Begin(ctx)
	if err != nil {
		return err
	}

	propertyID, err := tx.InsertProperty(ctx, &rec.Property)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if rec.Detail != nil {
		rec.Detail.PropertyID = propertyID
		if err := tx.InsertDetail(ctx, rec.Detail); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	for i := range rec.Valuations {
		rec.Valuations[i].PropertyID = propertyID
		if err := tx.InsertValuation(ctx, &rec.Valuations[i]); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	for i := range rec.Rehabs {
		rec.Rehabs[i].PropertyID = propertyID
		if err := tx.InsertRehabEstimate(ctx, &rec.Rehabs[i]); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	for i := range rec.HoaData {
		rec.HoaData[i].PropertyID = propertyID
		if err := tx.InsertHoaData(ctx, &rec.HoaData[i]); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	return tx.Commit(ctx)
}

// rawAddress pulls the address out of a raw record for failure reporting,
// using whichever raw field the mapping binds to the property address.
func (l *Loader) rawAddress(raw map[string]interface{}) string {
	field := l.normalizer.AddressField()
	if field == "" {
		return ""
	}
	if s, ok := raw[field].(string); ok {
		return s
	}
	return ""
}
