package types

import "sort"

// ReferenceColumn declares one meaning-reference column of an entity table.
// Optional columns are never enforced by the insert guard.
type ReferenceColumn struct {
	Table    string `json:"table" yaml:"table" mapstructure:"table"`
	Column   string `json:"column" yaml:"column" mapstructure:"column"`
	Required bool   `json:"required" yaml:"required" mapstructure:"required"`
}

// Meaning-protected entity tables.
const (
	TableTasks    = "tasks"
	TableGoals    = "goals"
	TableIdeas    = "ideas"
	TablePlans    = "plans"
	TableMessages = "messages"
	TableNotes    = "notes"
)

// MeaningRefColumn is the conventional meaning-reference column name.
const MeaningRefColumn = "meaning_object_id"

// DefaultReferenceColumns is the deployed protected-table configuration.
var DefaultReferenceColumns = []ReferenceColumn{
	{Table: TableTasks, Column: MeaningRefColumn, Required: true},
	{Table: TableGoals, Column: MeaningRefColumn, Required: true},
	{Table: TableIdeas, Column: MeaningRefColumn, Required: true},
	{Table: TablePlans, Column: MeaningRefColumn, Required: true},
	{Table: TableMessages, Column: MeaningRefColumn, Required: false},
	{Table: TableNotes, Column: MeaningRefColumn, Required: false},
}

// ProtectedTables indexes reference columns by table name.
type ProtectedTables struct {
	byTable map[string][]ReferenceColumn
}

// NewProtectedTables builds the lookup from a flat column list. Entries with
// an empty table or column name are ignored.
func NewProtectedTables(cols []ReferenceColumn) ProtectedTables {
	pt := ProtectedTables{byTable: make(map[string][]ReferenceColumn)}
	for _, c := range cols {
		if c.Table == "" || c.Column == "" {
			continue
		}
		pt.byTable[c.Table] = append(pt.byTable[c.Table], c)
	}
	return pt
}

// Columns returns the reference columns for table and whether it is protected.
func (p ProtectedTables) Columns(table string) ([]ReferenceColumn, bool) {
	cols, ok := p.byTable[table]
	return cols, ok
}

// Tables returns the protected table names in sorted order.
func (p ProtectedTables) Tables() []string {
	names := make([]string, 0, len(p.byTable))
	for name := range p.byTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
