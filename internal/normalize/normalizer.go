// Package normalize implements the record normalizer: it turns one raw,
// denormalized JSON record into typed, table-scoped sub-records ready for
// insertion, accumulating every field-level problem before deciding whether
// the record is accepted.
package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	etlerr "github.com/stwalsh4118/groundwork/internal/errors"
	"github.com/stwalsh4118/groundwork/internal/logger"
	"github.com/stwalsh4118/groundwork/internal/mapping"
	"github.com/stwalsh4118/groundwork/internal/models"
)

// Nested group keys handled outside the flat field mapping.
const (
	groupValuation = "Valuation"
	groupRehab     = "Rehab"
	groupHOA       = "HOA"
)

// Record is the normalized form of one raw input record: one typed
// sub-record per target table that has at least one populated field.
type Record struct {
	Property   models.Property
	Detail     *models.PropertyDetail
	Valuations []models.PropertyValuation
	Rehabs     []models.PropertyRehabEstimate
	HoaData    []models.PropertyHoaData
	// Unmapped lists input fields with no mapping; logged, never fatal.
	Unmapped []string
}

// Normalizer converts raw records using an immutable field configuration.
type Normalizer struct {
	cfg      *mapping.FieldConfig
	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
}

// New creates a Normalizer bound to the given field configuration.
func New(cfg *mapping.FieldConfig, log *logger.Logger) *Normalizer {
	return &Normalizer{
		cfg:      cfg,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// Normalize converts one raw record into typed sub-records. It coerces and
// validates every mapped field, collecting all problems; if any field is
// invalid the whole record is rejected and the returned error is an
// etlerr.FieldErrors listing every reason.
//
// Struct-level invariants on the assembled sub-records are checked only when
// the per-field pass found nothing: a field rejected there is never reported
// again through its struct tag, so additional struct-level violations stay
// hidden until the field-level problems are fixed.
func (n *Normalizer) Normalize(raw map[string]interface{}) (*Record, error) {
	var errs etlerr.FieldErrors
	rec := &Record{}
	now := n.now()

	// Walk the mapping in declaration order for deterministic error output.
	for _, fm := range n.cfg.Fields() {
		value := raw[fm.RawField]

		coerced, err := fm.Coerce(value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if coerced == nil {
			if fm.Required {
				errs = append(errs, &etlerr.ValidationError{
					Field:  fm.RawField,
					Reason: "required field is missing",
					Value:  value,
				})
			}
			continue
		}

		if fm.Rule != "" {
			if err := n.validate.Var(coerced, fm.Rule); err != nil {
				errs = append(errs, &etlerr.ValidationError{
					Field:  fm.RawField,
					Reason: ruleReason(fm.Rule, err),
					Value:  coerced,
				})
				continue
			}
		}

		n.assign(rec, fm, coerced, now)
	}

	// Trace unmapped fields so nothing is dropped silently.
	rec.Unmapped = n.unmappedFields(raw)
	for _, field := range rec.Unmapped {
		n.log.Debug("Skipping unmapped field", logger.Fields{
			"field": field,
			"error": (&etlerr.UnmappedFieldError{Field: field}).Error(),
		})
	}

	// Nested input groups carried by the richer source format.
	rec.Valuations = append(rec.Valuations, n.nestedValuations(raw, now)...)
	rec.Rehabs = append(rec.Rehabs, n.nestedRehabs(raw, now)...)
	rec.HoaData = append(rec.HoaData, n.nestedHoaData(raw, now)...)

	if rec.Detail != nil && rec.Detail.Empty() {
		rec.Detail = nil
	}

	// An HOA fact row must carry a fee or name an association; anything
	// else is an empty placeholder left by absent flat fields.
	kept := rec.HoaData[:0]
	for _, row := range rec.HoaData {
		if row.MonthlyFee != nil || row.HoaName != nil {
			kept = append(kept, row)
		}
	}
	rec.HoaData = kept

	// See the godoc: struct checks run only on a clean field pass.
	if len(errs) == 0 {
		errs = append(errs, n.structErrors(rec)...)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

// AddressField returns the raw field name the mapping binds to the property
// address, or "" when no field maps there.
func (n *Normalizer) AddressField() string {
	for _, fm := range n.cfg.Fields() {
		if fm.Table == "properties" && fm.Column == "address" {
			return fm.RawField
		}
	}
	return ""
}

// assign routes one coerced value into its table-scoped sub-record.
func (n *Normalizer) assign(rec *Record, fm mapping.FieldMapping, v interface{}, now time.Time) {
	switch fm.Table {
	case "properties":
		n.assignProperty(&rec.Property, fm.Column, v)

	case "property_details":
		if rec.Detail == nil {
			rec.Detail = &models.PropertyDetail{}
		}
		n.assignDetail(rec.Detail, fm.Column, v)

	case "property_valuations":
		if amount, ok := asFloat(v); ok {
			rec.Valuations = append(rec.Valuations, models.PropertyValuation{
				TypeName: fm.Vocabulary,
				Amount:   amount,
				Date:     now,
				Source:   strptr("flat import"),
			})
		}

	case "property_rehab_estimates":
		if cost, ok := asFloat(v); ok {
			rec.Rehabs = append(rec.Rehabs, models.PropertyRehabEstimate{
				CategoryName:  fm.Vocabulary,
				EstimatedCost: cost,
				Priority:      models.PriorityMedium,
				Date:          now,
			})
		}

	case "hoa_associations", "property_hoa_data":
		n.assignHoa(rec, fm.Column, v, now)
	}
}

func (n *Normalizer) assignProperty(p *models.Property, column string, v interface{}) {
	switch column {
	case "address":
		if s, ok := v.(string); ok {
			p.Address = s
		}
	case "city":
		p.City = asStrPtr(v)
	case "state":
		p.State = asStrPtr(v)
	case "zip_code":
		p.ZipCode = asStrPtr(v)
	case "county":
		p.County = asStrPtr(v)
	case "latitude":
		p.Latitude = asFloatPtr(v)
	case "longitude":
		p.Longitude = asFloatPtr(v)
	case "property_type":
		p.PropertyType = asStrPtr(v)
	}
}

func (n *Normalizer) assignDetail(d *models.PropertyDetail, column string, v interface{}) {
	switch column {
	case "bedrooms":
		d.Bedrooms = asIntPtr(v)
	case "bathrooms":
		d.Bathrooms = asFloatPtr(v)
	case "square_feet":
		d.SquareFeet = asIntPtr(v)
	case "lot_size":
		d.LotSize = asFloatPtr(v)
	case "year_built":
		d.YearBuilt = asIntPtr(v)
	case "garage_spaces":
		d.GarageSpaces = asIntPtr(v)
	case "basement":
		d.Basement = asBoolPtr(v)
	case "pool":
		d.Pool = asBoolPtr(v)
	case "fireplace":
		d.Fireplace = asBoolPtr(v)
	}
}

// assignHoa accumulates flat HOA fields into a single pending HOA fact row.
// The row is only kept when it carries a fee or an association name.
func (n *Normalizer) assignHoa(rec *Record, column string, v interface{}, now time.Time) {
	row := n.pendingHoa(rec, now)
	switch column {
	case "hoa_name":
		row.HoaName = asStrPtr(v)
	case "management_company":
		row.ManagementCompany = asStrPtr(v)
	case "monthly_fee":
		row.MonthlyFee = asFloatPtr(v)
	case "special_assessment":
		row.SpecialAssessment = asFloatPtr(v)
	case "amenities":
		row.Amenities = asStrPtr(v)
	case "restrictions":
		row.Restrictions = asStrPtr(v)
	}
}

// pendingHoa returns the flat-field HOA row, creating it on first use.
// Flat fields always target index 0; nested HOA rows are appended after.
func (n *Normalizer) pendingHoa(rec *Record, now time.Time) *models.PropertyHoaData {
	if len(rec.HoaData) == 0 {
		date := now
		rec.HoaData = append(rec.HoaData, models.PropertyHoaData{EffectiveDate: &date})
	}
	return &rec.HoaData[0]
}

// unmappedFields returns the sorted raw field names with no mapping,
// excluding the nested group keys.
func (n *Normalizer) unmappedFields(raw map[string]interface{}) []string {
	var out []string
	for field := range raw {
		if field == groupValuation || field == groupRehab || field == groupHOA {
			continue
		}
		if _, ok := n.cfg.Resolve(field); !ok {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// structErrors validates the assembled sub-records against their declared
// invariants and converts validator failures into the accumulator's entries.
func (n *Normalizer) structErrors(rec *Record) etlerr.FieldErrors {
	var errs etlerr.FieldErrors

	collect := func(target interface{}) {
		err := n.validate.Struct(target)
		if err == nil {
			return
		}
		var fieldErrs validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); !ok {
			errs = append(errs, err)
			return
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &etlerr.ValidationError{
				Field:  fe.Field(),
				Reason: tagReason(fe),
				Value:  fe.Value(),
			})
		}
	}

	collect(&rec.Property)
	if rec.Detail != nil {
		collect(rec.Detail)
	}
	for i := range rec.Valuations {
		collect(&rec.Valuations[i])
	}
	for i := range rec.Rehabs {
		collect(&rec.Rehabs[i])
	}
	for i := range rec.HoaData {
		collect(&rec.HoaData[i])
	}

	return errs
}

func asValidationErrors(err error, out *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*out = ve
	}
	return ok
}

// ruleReason produces a readable reason for a failed per-field rule.
func ruleReason(rule string, err error) string {
	var fieldErrs validator.ValidationErrors
	if asValidationErrors(err, &fieldErrs) && len(fieldErrs) > 0 {
		return tagReason(fieldErrs[0])
	}
	return "value violates rule " + rule
}

// tagReason converts a validator.FieldError to a human-readable message.
func tagReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min", "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max", "lte":
		return "must be less than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "validation failed for tag: " + fe.Tag()
	}
}

func strptr(s string) *string { return &s }

func asStrPtr(v interface{}) *string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return &s
	}
	return nil
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}

func asFloatPtr(v interface{}) *float64 {
	if f, ok := asFloat(v); ok {
		return &f
	}
	return nil
}

func asIntPtr(v interface{}) *int {
	switch t := v.(type) {
	case int:
		return &t
	case float64:
		i := int(t)
		return &i
	}
	return nil
}

func asBoolPtr(v interface{}) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}
