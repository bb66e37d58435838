package domain

// ValueTable maps a header from row 1 of a value store's first worksheet to
// the values found below it, in sheet order.
//
// Empty cells are skipped rather than recorded, so columns may differ in
// length and the i-th value of one column need not share a row with the
// i-th value of another. Downstream processes rely on these compacted
// columns; do not pad them.
type ValueTable map[string][]string

// Clone returns a deep copy so holders of the copy cannot mutate t.
func (t ValueTable) Clone() ValueTable {
	if t == nil {
		return nil
	}
	out := make(ValueTable, len(t))
	for header, values := range t {
		out[header] = append(make([]string, 0, len(values)), values...)
	}
	return out
}

// Bind ensures header exists in the table, with no values yet.
func (t ValueTable) Bind(header string) {
	if _, ok := t[header]; !ok {
		t[header] = []string{}
	}
}

// Append adds value to the end of header's column.
func (t ValueTable) Append(header, value string) {
	t[header] = append(t[header], value)
}

// Len reports the number of bound headers.
func (t ValueTable) Len() int {
	return len(t)
}
