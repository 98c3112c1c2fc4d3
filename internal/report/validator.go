// Package report implements the post-load validator: a read-only pass that
// re-derives the pipeline's invariants from persisted rows and reports
// counts, never row dumps.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/groundwork/internal/logger"
	"github.com/stwalsh4118/groundwork/internal/repository"
)

// Report is the structured end-of-run validation artifact.
type Report struct {
	RunID             string           `json:"runId"`
	GeneratedAt       time.Time        `json:"generatedAt"`
	TableCounts       map[string]int64 `json:"tableCounts"`
	ReferentialErrors map[string]int64 `json:"referentialErrors"`
	RangeViolations   map[string]int64 `json:"rangeViolations"`
	DuplicateCounts   map[string]int64 `json:"duplicateCounts"`
	Healthy           bool             `json:"healthy"`
}

// Validator runs the read-only integrity checks after a batch completes.
type Validator struct {
	stats repository.StatsRepository
	log   *logger.Logger
}

// NewValidator creates a Validator over the stats repository.
func NewValidator(stats repository.StatsRepository, log *logger.Logger) *Validator {
	return &Validator{stats: stats, log: log}
}

// Run executes every check and assembles the report. It never mutates data.
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	counts, err := v.stats.TableCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect table counts: %w", err)
	}
	orphans, err := v.stats.OrphanCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run referential checks: %w", err)
	}
	ranges, err := v.stats.RangeViolations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run range checks: %w", err)
	}
	duplicates, err := v.stats.DuplicateCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run duplicate checks: %w", err)
	}

	r := &Report{
		RunID:             uuid.New().String(),
		GeneratedAt:       time.Now(),
		TableCounts:       counts,
		ReferentialErrors: orphans,
		RangeViolations:   ranges,
		DuplicateCounts:   duplicates,
	}
	r.Healthy = allZero(orphans) && allZero(ranges) && allZero(duplicates)

	fields := logger.Fields{
		"healthy": r.Healthy,
	}
	for table, count := range counts {
		fields["rows_"+table] = count
	}
	if r.Healthy {
		v.log.Info("Validation passed", fields)
	} else {
		fields["referential_errors"] = total(orphans)
		fields["range_violations"] = total(ranges)
		fields["duplicates"] = total(duplicates)
		v.log.Warn("Validation found problems", fields)
	}

	return r, nil
}

func allZero(counts map[string]int64) bool {
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func total(counts map[string]int64) int64 {
	var sum int64
	for _, c := range counts {
		sum += c
	}
	return sum
}
