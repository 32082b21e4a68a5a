package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// MaxCategoricalLevels is the number of distinct values up to which a string
// column is always inferred as categorical.
const MaxCategoricalLevels = 50

var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {},
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ReadCSV reads a header row followed by data rows and infers column types.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyDataset, "csv has no header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", len(rows)+1)
		}
		rows = append(rows, record)
	}
	return FromRecords(header, rows)
}

// FromRecords builds a Dataset from string records, inferring each column's
// semantic type:
//   - numeric if every present value parses as a float;
//   - datetime if every present value parses with a known layout;
//   - identifier if all present values are distinct and the name matches
//     IdentifierTokens;
//   - categorical if there are at most MaxCategoricalLevels distinct values
//     or the distinct ratio is at most 0.5;
//   - text otherwise.
//
// Short rows are padded with missing values.
func FromRecords(header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyDataset, "no columns")
	}
	columns := make([]*Column, len(header))
	for j, rawName := range header {
		name := strings.TrimSpace(rawName)
		values := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				values[i] = normalizeCell(row[j])
			}
		}
		columns[j] = inferColumn(name, values)
	}
	return New(columns...)
}

func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	if _, missing := missingTokens[strings.ToLower(s)]; missing {
		return ""
	}
	return s
}

func inferColumn(name string, values []string) *Column {
	present := 0
	for _, v := range values {
		if v != "" {
			present++
		}
	}
	if present == 0 {
		return NewCategorical(name, values)
	}

	if nums, ok := parseFloats(values); ok {
		return NewNumeric(name, nums)
	}
	if times, ok := parseTimes(values); ok {
		return NewDatetime(name, times)
	}

	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			distinct[v] = struct{}{}
		}
	}
	switch {
	case len(distinct) == present && present > 1 && NameLooksLikeIdentifier(name):
		return NewIdentifier(name, values)
	case len(distinct) <= MaxCategoricalLevels || float64(len(distinct))/float64(present) <= 0.5:
		return NewCategorical(name, values)
	default:
		return NewText(name, values)
	}
}

func parseFloats(values []string) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == "" {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func parseTimes(values []string) ([]time.Time, bool) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		t, ok := parseTime(v)
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

func parseTime(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
