package dataset

import (
	"github.com/YuminosukeSato/autotune/pkg/errors"
)

// Dataset is an ordered collection of equally long columns. It is never
// modified after construction.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a Dataset from columns in declaration order. Column names must
// be unique and all columns must have the same length.
func New(columns ...*Column) (*Dataset, error) {
	d := &Dataset{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c == nil {
			return nil, errors.NewValueError("dataset.New", "nil column")
		}
		if _, dup := d.index[c.Name()]; dup {
			return nil, errors.NewValidationError("column", "duplicate column name", c.Name())
		}
		if i == 0 {
			d.rows = c.Len()
		} else if c.Len() != d.rows {
			return nil, errors.NewDimensionError("dataset.New", d.rows, c.Len(), 0)
		}
		d.index[c.Name()] = len(d.columns)
		d.columns = append(d.columns, c)
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(columns ...*Column) *Dataset {
	d, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return d
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// IsEmpty reports whether the dataset has no columns or no rows.
func (d *Dataset) IsEmpty() bool { return d == nil || len(d.columns) == 0 || d.rows == 0 }

// Names returns the column names in declaration order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name()
	}
	return out
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Position returns the declaration index of a column, -1 if absent.
func (d *Dataset) Position(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the dataset contains the named column.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}
