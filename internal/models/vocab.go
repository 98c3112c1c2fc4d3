package models

import (
	"fmt"
	"strings"
)

// ValuationType is the closed set of valuation vocabularies seeded in the
// valuation_types table. The pipeline only ever looks these up; it never
// creates new ones.
type ValuationType int

const (
	MarketValue ValuationType = iota
	TaxAssessment
	InsuranceValue
	RentalValue
	QuickSale
)

var valuationTypeNames = [...]string{
	MarketValue:    "Market Value",
	TaxAssessment:  "Tax Assessment",
	InsuranceValue: "Insurance Value",
	RentalValue:    "Rental Value",
	QuickSale:      "Quick Sale",
}

// String returns the canonical type_name as seeded in the database.
func (t ValuationType) String() string {
	if int(t) < 0 || int(t) >= len(valuationTypeNames) {
		return fmt.Sprintf("ValuationType(%d)", int(t))
	}
	return valuationTypeNames[t]
}

// ValuationTypes returns all canonical valuation types in seed order.
func ValuationTypes() []ValuationType {
	return []ValuationType{MarketValue, TaxAssessment, InsuranceValue, RentalValue, QuickSale}
}

// ParseValuationType matches a raw name against the canonical set using
// trimmed, case-insensitive comparison. It returns false for anything that
// does not normalize to a canonical name.
func ParseValuationType(name string) (ValuationType, bool) {
	key := normalizeVocab(name)
	for _, t := range ValuationTypes() {
		if normalizeVocab(t.String()) == key {
			return t, true
		}
	}
	return 0, false
}

// RehabCategory is the closed set of rehab categories seeded in the
// rehab_categories table.
type RehabCategory int

const (
	Kitchen RehabCategory = iota
	Bathroom
	Flooring
	Roofing
	HVAC
	Electrical
	Plumbing
	Structural
	Interior
	Exterior
)

var rehabCategoryNames = [...]string{
	Kitchen:    "Kitchen",
	Bathroom:   "Bathroom",
	Flooring:   "Flooring",
	Roofing:    "Roofing",
	HVAC:       "HVAC",
	Electrical: "Electrical",
	Plumbing:   "Plumbing",
	Structural: "Structural",
	Interior:   "Interior",
	Exterior:   "Exterior",
}

// String returns the canonical category_name as seeded in the database.
func (c RehabCategory) String() string {
	if int(c) < 0 || int(c) >= len(rehabCategoryNames) {
		return fmt.Sprintf("RehabCategory(%d)", int(c))
	}
	return rehabCategoryNames[c]
}

// RehabCategories returns all canonical rehab categories in seed order.
func RehabCategories() []RehabCategory {
	return []RehabCategory{
		Kitchen, Bathroom, Flooring, Roofing, HVAC,
		Electrical, Plumbing, Structural, Interior, Exterior,
	}
}

// ParseRehabCategory matches a raw name against the canonical set using
// trimmed, case-insensitive comparison.
func ParseRehabCategory(name string) (RehabCategory, bool) {
	key := normalizeVocab(name)
	for _, c := range RehabCategories() {
		if normalizeVocab(c.String()) == key {
			return c, true
		}
	}
	return 0, false
}

// Priority is the urgency level of a rehab estimate.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// ParsePriority normalizes a raw priority string. Empty input defaults to
// MEDIUM; anything else must match one of the four levels.
func ParsePriority(raw string) (Priority, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return PriorityMedium, true
	case "LOW":
		return PriorityLow, true
	case "MEDIUM":
		return PriorityMedium, true
	case "HIGH":
		return PriorityHigh, true
	case "CRITICAL":
		return PriorityCritical, true
	default:
		return "", false
	}
}

// normalizeVocab collapses whitespace and case so that near-duplicates like
// "Market Value " and "market value" land on the same key.
func normalizeVocab(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
