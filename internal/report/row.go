package report

// RawCell is one untyped column value as delivered by the file parser.
// The value is a scalar: string, number, bool, time.Time, or nil.
type RawCell struct {
	Key   string
	Value interface{}
}

// RawRecord is one unnormalized row, in source column order. Ephemeral;
// it exists only between parsing and normalization.
type RawRecord []RawCell

// Row is one normalized report row: an ordered mapping from canonical
// column name to string value. Column order follows the source file.
// Bottler and SubBottler are always populated after normalization and are
// also present as regular columns.
type Row struct {
	columns []string
	values  map[string]string

	Bottler    string
	SubBottler string
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]string)}
}

// Set stores a value under a canonical column name. The first Set for a
// key fixes its position in the column order; later Sets overwrite the
// value in place.
func (r *Row) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.columns = append(r.columns, key)
	}
	r.values[key] = value
}

// Get returns the value for a column, or "" when absent.
func (r *Row) Get(key string) string {
	return r.values[key]
}

// Has reports whether the column is present.
func (r *Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Columns returns the column names in source order.
func (r *Row) Columns() []string {
	cols := make([]string, len(r.columns))
	copy(cols, r.columns)
	return cols
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.columns)
}

// SubBottlerGroup is a named, ordered slice of rows sharing one
// subbottler value. Groups partition the dataset with no overlap.
type SubBottlerGroup struct {
	Name string
	Rows []*Row
}
