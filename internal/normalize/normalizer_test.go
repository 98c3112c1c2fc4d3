package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	etlerr "github.com/stwalsh4118/groundwork/internal/errors"
	"github.com/stwalsh4118/groundwork/internal/logger"
	"github.com/stwalsh4118/groundwork/internal/mapping"
	"github.com/stwalsh4118/groundwork/internal/models"
)

const testMapping = `
fields:
  - raw_field: address
    table: properties
    column: address
    required: true
  - raw_field: city
    table: properties
    column: city
  - raw_field: state
    table: properties
    column: state
  - raw_field: bedrooms
    table: property_details
    column: bedrooms
    type: int
    rule: gte=0,lte=50
  - raw_field: bathrooms
    table: property_details
    column: bathrooms
    type: decimal
    rule: gte=0,lte=50
  - raw_field: square_feet
    table: property_details
    column: square_feet
    type: int
    rule: gte=100,lte=50000
  - raw_field: market_value
    table: property_valuations
    column: amount
    type: decimal
    vocabulary: Market Value
  - raw_field: hoa_name
    table: hoa_associations
    column: hoa_name
  - raw_field: hoa_monthly_fee
    table: property_hoa_data
    column: monthly_fee
    type: decimal
  - raw_field: kitchen_rehab_cost
    table: property_rehab_estimates
    column: estimated_cost
    type: decimal
    vocabulary: Kitchen
`

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testMapping), 0o644))

	cfg, err := mapping.LoadFieldConfig(path)
	require.NoError(t, err)

	return New(cfg, logger.New("production"))
}

func TestNormalize_BasicRecord(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address":      "123 Main St",
		"city":         "Austin",
		"state":        "TX",
		"bedrooms":     float64(3),
		"bathrooms":    2.5,
		"market_value": float64(250000),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "123 Main St", rec.Property.Address)
	require.NotNil(t, rec.Property.City)
	assert.Equal(t, "Austin", *rec.Property.City)

	require.NotNil(t, rec.Detail)
	require.NotNil(t, rec.Detail.Bedrooms)
	assert.Equal(t, 3, *rec.Detail.Bedrooms)
	require.NotNil(t, rec.Detail.Bathrooms)
	assert.Equal(t, 2.5, *rec.Detail.Bathrooms)

	require.Len(t, rec.Valuations, 1)
	assert.Equal(t, "Market Value", rec.Valuations[0].TypeName)
	assert.Equal(t, float64(250000), rec.Valuations[0].Amount)
}

func TestNormalize_MissingRequiredAddress(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"city": "Austin",
	})
	assert.Nil(t, rec)

	var fe etlerr.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 1)
	assert.Contains(t, fe[0].Error(), "address")
	assert.Contains(t, fe[0].Error(), "required")
}

func TestNormalize_AccumulatesAllFieldErrors(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address":     "123 Main St",
		"bedrooms":    float64(-1),
		"square_feet": float64(40),
	})
	assert.Nil(t, rec)

	var fe etlerr.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 2)

	reasons := fe.Reasons()
	assert.Contains(t, reasons[0], "bedrooms")
	assert.Contains(t, reasons[1], "square_feet")
}

func TestNormalize_CoercionFailureRejectsRecord(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.Normalize(map[string]interface{}{
		"address":  "123 Main St",
		"bedrooms": "three",
	})

	var fe etlerr.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 1)

	var coErr *etlerr.TypeCoercionError
	assert.ErrorAs(t, fe[0], &coErr)
	assert.Equal(t, "bedrooms", coErr.Field)
}

func TestNormalize_FieldFailureSuppressesStructChecks(t *testing.T) {
	n := newTestNormalizer(t)

	// market_value -5 would fail the valuation's gt=0 struct tag, but the
	// bedrooms coercion failure rejects the record first; struct-level
	// reasons are withheld until the field pass is clean.
	_, err := n.Normalize(map[string]interface{}{
		"address":      "123 Main St",
		"bedrooms":     "three",
		"market_value": float64(-5),
	})

	var fe etlerr.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 1)

	var coErr *etlerr.TypeCoercionError
	assert.ErrorAs(t, fe[0], &coErr)
}

func TestNormalize_StructChecksRunOnCleanFieldPass(t *testing.T) {
	n := newTestNormalizer(t)

	// A clean field pass still rejects the record on struct invariants.
	_, err := n.Normalize(map[string]interface{}{
		"address":      "123 Main St",
		"market_value": float64(-5),
	})

	var fe etlerr.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 1)
	assert.Contains(t, fe[0].Error(), "greater than")
}

func TestAddressField(t *testing.T) {
	n := newTestNormalizer(t)
	assert.Equal(t, "address", n.AddressField())
}

func TestNormalize_ListsUnmappedFields(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address":    "123 Main St",
		"zz_unknown": "???",
		"aa_unknown": float64(1),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"aa_unknown", "zz_unknown"}, rec.Unmapped)
}

func TestNormalize_AbsentOptionalFieldsDropDetail(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address":  "123 Main St",
		"bedrooms": "None",
	})
	require.NoError(t, err)

	assert.Nil(t, rec.Detail)
	assert.Empty(t, rec.HoaData)
}

func TestNormalize_FlatHoaFields(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address":         "123 Main St",
		"hoa_name":        "Oak Hills HOA",
		"hoa_monthly_fee": float64(125),
	})
	require.NoError(t, err)

	require.Len(t, rec.HoaData, 1)
	require.NotNil(t, rec.HoaData[0].HoaName)
	assert.Equal(t, "Oak Hills HOA", *rec.HoaData[0].HoaName)
	require.NotNil(t, rec.HoaData[0].MonthlyFee)
	assert.Equal(t, float64(125), *rec.HoaData[0].MonthlyFee)
	assert.NotNil(t, rec.HoaData[0].EffectiveDate)
}

func TestNormalize_NestedValuationGroup(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address": "123 Main St",
		"Valuation": []interface{}{
			map[string]interface{}{
				"List_Price":    float64(300000),
				"Zestimate":     "305000",
				"ARV":           float64(280000),
				"Expected_Rent": float64(2100),
				"Redfin_Value":  float64(0),
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, rec.Valuations, 4)

	byType := map[string]int{}
	for _, v := range rec.Valuations {
		byType[v.TypeName]++
	}
	assert.Equal(t, 2, byType[models.MarketValue.String()])
	assert.Equal(t, 1, byType[models.QuickSale.String()])
	assert.Equal(t, 1, byType[models.RentalValue.String()])
}

func TestNormalize_NestedRehabGroup(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address": "123 Main St",
		"Rehab": []interface{}{
			map[string]interface{}{
				"Underwriting_Rehab": float64(42000),
				"Roof_Flag":          "Yes",
				"Kitchen_Flag":       true,
				"Paint":              "No",
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, rec.Rehabs, 3)

	assert.Equal(t, models.Structural.String(), rec.Rehabs[0].CategoryName)
	assert.Equal(t, float64(42000), rec.Rehabs[0].EstimatedCost)
	assert.Equal(t, models.PriorityHigh, rec.Rehabs[0].Priority)

	byCategory := map[string]float64{}
	for _, r := range rec.Rehabs[1:] {
		byCategory[r.CategoryName] = r.EstimatedCost
	}
	assert.Equal(t, float64(12000), byCategory[models.Roofing.String()])
	assert.Equal(t, float64(15000), byCategory[models.Kitchen.String()])
}

func TestNormalize_NestedHoaGroup(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address": "123 Main St",
		"HOA": []interface{}{
			map[string]interface{}{"HOA": float64(95)},
			map[string]interface{}{"HOA": float64(0)},
		},
	})
	require.NoError(t, err)

	require.Len(t, rec.HoaData, 1)
	require.NotNil(t, rec.HoaData[0].MonthlyFee)
	assert.Equal(t, float64(95), *rec.HoaData[0].MonthlyFee)
}

func TestNormalize_NestedGroupsNotCountedAsUnmapped(t *testing.T) {
	n := newTestNormalizer(t)

	rec, err := n.Normalize(map[string]interface{}{
		"address":   "123 Main St",
		"Valuation": []interface{}{},
		"Rehab":     []interface{}{},
		"HOA":       []interface{}{},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Unmapped)
}
