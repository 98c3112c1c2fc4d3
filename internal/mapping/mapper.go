// Package mapping implements the field mapper: a declarative, immutable
// lookup table from raw input field names to target table/column, declared
// type, and validation rule, plus the type coercion that goes with it.
package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	etlerr "github.com/stwalsh4118/groundwork/internal/errors"
)

// DataType is the declared type of a mapped field.
type DataType string

const (
	TypeString  DataType = "string"
	TypeText    DataType = "text"
	TypeInt     DataType = "int"
	TypeDecimal DataType = "decimal"
	TypeYear    DataType = "year"
	TypeBool    DataType = "bool"
	// TypeYesNo covers Yes/No/None string flags that land in boolean columns.
	TypeYesNo DataType = "yesno"
)

// maxStringLen is the VARCHAR width of string columns in the target schema.
const maxStringLen = 255

// Target table names the mapper is allowed to route fields to.
var knownTables = map[string]bool{
	"properties":               true,
	"property_details":         true,
	"property_hoa_data":        true,
	"hoa_associations":         true,
	"property_valuations":      true,
	"property_rehab_estimates": true,
}

var knownTypes = map[DataType]bool{
	TypeString:  true,
	TypeText:    true,
	TypeInt:     true,
	TypeDecimal: true,
	TypeYear:    true,
	TypeBool:    true,
	TypeYesNo:   true,
}

// FieldMapping describes where one raw field lands and how it is typed.
type FieldMapping struct {
	RawField string   `mapstructure:"raw_field"`
	Table    string   `mapstructure:"table"`
	Column   string   `mapstructure:"column"`
	Type     DataType `mapstructure:"type"`
	// Rule is an optional validator tag expression (e.g. "gte=0,lte=50")
	// applied to the coerced value.
	Rule     string `mapstructure:"rule"`
	Required bool   `mapstructure:"required"`
	// Vocabulary binds a valuation or rehab amount field to the canonical
	// master name it feeds (e.g. market_value -> "Market Value").
	Vocabulary string `mapstructure:"vocabulary"`
}

// FieldConfig is the immutable field mapping loaded once at process start.
type FieldConfig struct {
	byField map[string]FieldMapping
	order   []string
}

// LoadFieldConfig reads the field mapping from a YAML file. A missing or
// malformed file is a ConfigurationError and aborts the run before any
// record is processed.
func LoadFieldConfig(path string) (*FieldConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, &etlerr.ConfigurationError{
			Reason: fmt.Sprintf("cannot read field mapping %q", path),
			Err:    err,
		}
	}

	var fields []FieldMapping
	if err := v.UnmarshalKey("fields", &fields); err != nil {
		return nil, &etlerr.ConfigurationError{
			Reason: fmt.Sprintf("malformed field mapping %q", path),
			Err:    err,
		}
	}
	if len(fields) == 0 {
		return nil, &etlerr.ConfigurationError{
			Reason: fmt.Sprintf("field mapping %q defines no fields", path),
		}
	}

	cfg := &FieldConfig{byField: make(map[string]FieldMapping, len(fields))}
	for _, fm := range fields {
		if fm.RawField == "" || fm.Table == "" || fm.Column == "" {
			return nil, &etlerr.ConfigurationError{
				Reason: fmt.Sprintf("mapping entry %+v is missing raw_field, table, or column", fm),
			}
		}
		if !knownTables[fm.Table] {
			return nil, &etlerr.ConfigurationError{
				Reason: fmt.Sprintf("field %q maps to unknown table %q", fm.RawField, fm.Table),
			}
		}
		if fm.Type == "" {
			fm.Type = TypeString
		}
		if !knownTypes[fm.Type] {
			return nil, &etlerr.ConfigurationError{
				Reason: fmt.Sprintf("field %q has unknown type %q", fm.RawField, fm.Type),
			}
		}
		if _, dup := cfg.byField[fm.RawField]; dup {
			return nil, &etlerr.ConfigurationError{
				Reason: fmt.Sprintf("field %q is mapped twice", fm.RawField),
			}
		}
		cfg.byField[fm.RawField] = fm
		cfg.order = append(cfg.order, fm.RawField)
	}

	return cfg, nil
}

// Resolve looks up the mapping for a raw field name.
// The second return value is false when the field is not mapped.
func (c *FieldConfig) Resolve(rawField string) (FieldMapping, bool) {
	fm, ok := c.byField[rawField]
	return fm, ok
}

// Fields returns all mappings in declaration order.
func (c *FieldConfig) Fields() []FieldMapping {
	out := make([]FieldMapping, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byField[name])
	}
	return out
}

// Len returns the number of mapped fields.
func (c *FieldConfig) Len() int {
	return len(c.byField)
}

// Coerce converts a raw value to the mapping's declared type. Nil, empty
// strings, and literal "None"/"null" coerce to nil (absent field). A value
// that cannot be converted returns a TypeCoercionError; the caller decides
// whether that is fatal for the record or just for the field.
func (m FieldMapping) Coerce(value interface{}) (interface{}, error) {
	if isAbsent(value) {
		return nil, nil
	}

	switch m.Type {
	case TypeString:
		s := strings.TrimSpace(fmt.Sprintf("%v", value))
		if s == "" {
			return nil, nil
		}
		if r := []rune(s); len(r) > maxStringLen {
			s = string(r[:maxStringLen])
		}
		return s, nil

	case TypeText:
		s := strings.TrimSpace(fmt.Sprintf("%v", value))
		if s == "" {
			return nil, nil
		}
		return s, nil

	case TypeInt, TypeYear:
		f, err := toFloat(value)
		if err != nil {
			return nil, m.coercionError(value)
		}
		return int(f), nil

	case TypeDecimal:
		f, err := toFloat(value)
		if err != nil {
			return nil, m.coercionError(value)
		}
		return f, nil

	case TypeBool:
		b, err := toBool(value)
		if err != nil {
			return nil, m.coercionError(value)
		}
		return b, nil

	case TypeYesNo:
		s := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
		switch s {
		case "yes", "true", "1":
			return true, nil
		case "no", "false", "0":
			return false, nil
		}
		return nil, m.coercionError(value)
	}

	return nil, m.coercionError(value)
}

func (m FieldMapping) coercionError(value interface{}) error {
	return &etlerr.TypeCoercionError{Field: m.RawField, Type: string(m.Type), Value: value}
}

// isAbsent reports whether a raw value represents a missing field.
func isAbsent(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		t := strings.TrimSpace(s)
		return t == "" || strings.EqualFold(t, "none") || strings.EqualFold(t, "null")
	}
	return false
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("unsupported numeric value %T", value)
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("unsupported boolean value %v", value)
}
