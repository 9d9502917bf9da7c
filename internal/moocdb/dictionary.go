package moocdb

import (
	"strconv"
	"strings"
)

// DictionaryTable is an append-only value dictionary backing the small
// MOOCdb lookup tables (urls, os, agent, resource_types, resources_urls).
// The first insertion of a value defines its integer id; repeated identical
// values resolve to the same id.
type DictionaryTable struct {
	writer Writer
	fields []string
	items  [][]string
	index  map[string]int
}

// NewDictionaryTable binds a dictionary to the named table of db.
func NewDictionaryTable(db *MOOCdb, table string) *DictionaryTable {
	return &DictionaryTable{
		writer: db.Writer(table),
		fields: Tables[table],
		index:  make(map[string]int),
	}
}

// Insert returns the id assigned to the given value tuple, assigning the
// next sequential id when the tuple is new. Ids start at 0 and follow
// first-seen order.
func (d *DictionaryTable) Insert(values ...string) int {
	key := strings.Join(values, "\x00")
	if id, ok := d.index[key]; ok {
		return id
	}
	id := len(d.items)
	d.items = append(d.items, values)
	d.index[key] = id
	return id
}

// Len reports the number of distinct values inserted so far.
func (d *DictionaryTable) Len() int {
	return len(d.items)
}

// Serialize writes one row per distinct value: the id followed by the value
// tuple, mapped onto the table's field list in order.
func (d *DictionaryTable) Serialize() error {
	for id, values := range d.items {
		row := Row{d.fields[0]: strconv.Itoa(id)}
		for i, v := range values {
			if i+1 < len(d.fields) {
				row[d.fields[i+1]] = v
			}
		}
		if err := d.writer.Store(row); err != nil {
			return err
		}
	}
	return nil
}
