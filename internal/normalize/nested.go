package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/groundwork/internal/models"
)

// The richer source feed nests valuations, rehab items, and HOA snapshots as
// arrays of objects under well-known keys. Their amount fields are bound to
// the canonical vocabularies here; unknown or non-positive amounts are
// skipped the way the feed intends, not treated as record failures.

// nestedValuationTypes maps nested amount fields onto canonical types.
var nestedValuationTypes = []struct {
	field    string
	typeName string
}{
	{"List_Price", models.MarketValue.String()},
	{"Zestimate", models.MarketValue.String()},
	{"Redfin_Value", models.MarketValue.String()},
	{"ARV", models.QuickSale.String()},
	{"Expected_Rent", models.RentalValue.String()},
	{"Rent_Zestimate", models.RentalValue.String()},
	{"Previous_Rent", models.RentalValue.String()},
	{"Low_FMR", models.RentalValue.String()},
	{"High_FMR", models.RentalValue.String()},
}

// nestedRehabFlags maps flag fields onto canonical categories with the
// default cost charged when the flag is set.
var nestedRehabFlags = []struct {
	field       string
	category    string
	defaultCost float64
}{
	{"Paint", models.Interior.String(), 3000},
	{"Flooring_Flag", models.Flooring.String(), 5000},
	{"Foundation_Flag", models.Structural.String(), 15000},
	{"Roof_Flag", models.Roofing.String(), 12000},
	{"HVAC_Flag", models.HVAC.String(), 6000},
	{"Kitchen_Flag", models.Kitchen.String(), 15000},
	{"Bathroom_Flag", models.Bathroom.String(), 8000},
	{"Appliances_Flag", models.Kitchen.String(), 15000},
	{"Windows_Flag", models.Exterior.String(), 7000},
	{"Landscaping_Flag", models.Exterior.String(), 7000},
}

func (n *Normalizer) nestedValuations(raw map[string]interface{}, now time.Time) []models.PropertyValuation {
	var out []models.PropertyValuation
	for _, entry := range nestedObjects(raw, groupValuation) {
		for _, m := range nestedValuationTypes {
			amount, ok := looseFloat(entry[m.field])
			if !ok || amount <= 0 {
				continue
			}
			out = append(out, models.PropertyValuation{
				TypeName: m.typeName,
				Amount:   amount,
				Date:     now,
				Source:   strptr("nested import"),
			})
		}
	}
	return out
}

func (n *Normalizer) nestedRehabs(raw map[string]interface{}, now time.Time) []models.PropertyRehabEstimate {
	var out []models.PropertyRehabEstimate
	for _, entry := range nestedObjects(raw, groupRehab) {
		// Underwriting totals are charged to Structural at high priority.
		if cost, ok := looseFloat(entry["Underwriting_Rehab"]); ok && cost > 0 {
			out = append(out, models.PropertyRehabEstimate{
				CategoryName:  models.Structural.String(),
				EstimatedCost: cost,
				Priority:      models.PriorityHigh,
				Date:          now,
			})
		}

		for _, m := range nestedRehabFlags {
			if !flagSet(entry[m.field]) {
				continue
			}
			out = append(out, models.PropertyRehabEstimate{
				CategoryName:  m.category,
				EstimatedCost: m.defaultCost,
				Priority:      models.PriorityMedium,
				Date:          now,
			})
		}
	}
	return out
}

func (n *Normalizer) nestedHoaData(raw map[string]interface{}, now time.Time) []models.PropertyHoaData {
	var out []models.PropertyHoaData
	for _, entry := range nestedObjects(raw, groupHOA) {
		fee, ok := looseFloat(entry["HOA"])
		if !ok || fee <= 0 {
			continue
		}
		date := now
		out = append(out, models.PropertyHoaData{
			MonthlyFee:    &fee,
			EffectiveDate: &date,
		})
	}
	return out
}

// nestedObjects returns the array of objects under key, tolerating records
// where the group is absent or not an array.
func nestedObjects(raw map[string]interface{}, key string) []map[string]interface{} {
	arr, ok := raw[key].([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, item := range arr {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// looseFloat parses the feed's loosely typed numeric values.
func looseFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// flagSet reports whether a nested flag value means yes.
func flagSet(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "yes" || s == "true" || s == "1"
	}
	return false
}
