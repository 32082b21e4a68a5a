// Package dataset provides the read-only tabular input of the engine: an
// ordered set of named columns, each tagged with a semantic type.
//
// Numeric and datetime values are stored as float64 (datetime as Unix
// seconds) with NaN marking a missing value. Categorical, identifier and
// text values are stored as strings with "" marking a missing value.
// Accessors return copies so that no caller can mutate a Dataset.
package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// SemanticType is the inferred meaning of a column.
type SemanticType int

const (
	// Numeric columns hold real or integer measurements.
	Numeric SemanticType = iota
	// Categorical columns hold a small set of labels.
	Categorical
	// Datetime columns hold timestamps.
	Datetime
	// Identifier columns hold per-row keys.
	Identifier
	// Text columns hold free-form strings.
	Text
)

// String returns the lower-case name of the type.
func (t SemanticType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Datetime:
		return "datetime"
	case Identifier:
		return "identifier"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t SemanticType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// IdentifierTokens is the vocabulary of column-name fragments that mark a
// column as a likely row key.
var IdentifierTokens = []string{"id", "key", "code", "number", "index", "uuid", "guid"}

// NameLooksLikeIdentifier reports whether name contains one of
// IdentifierTokens, case-insensitively.
func NameLooksLikeIdentifier(name string) bool {
	lower := strings.ToLower(name)
	for _, tok := range IdentifierTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Column is a named, typed, immutable vector of values.
type Column struct {
	name string
	kind SemanticType
	nums []float64
	strs []string
}

// NewNumeric creates a numeric column. NaN marks a missing value.
func NewNumeric(name string, values []float64) *Column {
	return &Column{name: name, kind: Numeric, nums: append([]float64(nil), values...)}
}

// NewCategorical creates a categorical column. "" marks a missing value.
func NewCategorical(name string, values []string) *Column {
	return newStringColumn(name, Categorical, values)
}

// NewIdentifier creates an identifier column.
func NewIdentifier(name string, values []string) *Column {
	return newStringColumn(name, Identifier, values)
}

// NewText creates a free-text column.
func NewText(name string, values []string) *Column {
	return newStringColumn(name, Text, values)
}

// NewDatetime creates a datetime column. The zero time marks a missing value.
func NewDatetime(name string, values []time.Time) *Column {
	nums := make([]float64, len(values))
	for i, t := range values {
		if t.IsZero() {
			nums[i] = math.NaN()
			continue
		}
		nums[i] = float64(t.Unix())
	}
	return &Column{name: name, kind: Datetime, nums: nums}
}

func newStringColumn(name string, kind SemanticType, values []string) *Column {
	return &Column{name: name, kind: kind, strs: append([]string(nil), values...)}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the semantic type.
func (c *Column) Type() SemanticType { return c.kind }

// IsNumeric reports whether the column holds numeric measurements.
func (c *Column) IsNumeric() bool { return c.kind == Numeric }

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.nums != nil {
		return len(c.nums)
	}
	return len(c.strs)
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.nums != nil {
		return math.IsNaN(c.nums[i])
	}
	return c.strs[i] == ""
}

// Floats returns a copy of the values of a numeric or datetime column, nil
// for other types.
func (c *Column) Floats() []float64 {
	if c.nums == nil {
		return nil
	}
	return append([]float64(nil), c.nums...)
}

// Strings returns a copy of the values as strings. Numeric values are
// formatted with strconv; missing values are "".
func (c *Column) Strings() []string {
	if c.strs != nil {
		return append([]string(nil), c.strs...)
	}
	out := make([]string, len(c.nums))
	for i := range c.nums {
		out[i] = c.Key(i)
	}
	return out
}

// Key returns the string form of row i used for counting distinct values.
func (c *Column) Key(i int) string {
	if c.nums != nil {
		v := c.nums[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return c.strs[i]
}
