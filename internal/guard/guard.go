// Package guard enforces that rows written to meaning-protected tables carry
// their required meaning reference. It is the last check before a write,
// catching code paths that bypass normal authoring.
package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/pkg/types"
)

// ErrMissingMeaningRef is wrapped by every ViolationError.
var ErrMissingMeaningRef = errors.New("missing meaning reference")

// maxRowPreview bounds the row rendering included in warnings.
const maxRowPreview = 200

// Mode selects how a violation is handled.
type Mode int

const (
	// Block rejects the write with a ViolationError. It is the zero value.
	Block Mode = iota
	// Warn logs the violation and lets the caller proceed. Used by legacy
	// and migration paths.
	Warn
)

func (m Mode) String() string {
	if m == Warn {
		return "warn"
	}
	return "block"
}

// Options control a single CheckInsert call.
type Options struct {
	Mode Mode
}

// ViolationError identifies the table, column and row that failed the check.
type ViolationError struct {
	Table  string
	Column string
	Row    int
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: table %q row %d column %q", ErrMissingMeaningRef, e.Table, e.Row, e.Column)
}

func (e *ViolationError) Unwrap() error { return ErrMissingMeaningRef }

// Guard checks candidate rows against a protected-table configuration.
type Guard struct {
	tables       types.ProtectedTables
	logger       *zap.Logger
	warnOptional bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithWarnOptional emits a debug diagnostic when an optional reference column
// is absent. The check result is unaffected.
func WithWarnOptional(on bool) Option {
	return func(g *Guard) { g.warnOptional = on }
}

// New creates a Guard for tables.
func New(tables types.ProtectedTables, opts ...Option) *Guard {
	g := &Guard{tables: tables, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// CheckInsert verifies that every row carries a value in every required
// reference column of table. Tables outside the configuration always pass.
//
// In Block mode the first violation returns false and a *ViolationError; the
// write must not proceed. In Warn mode every violation is logged and the
// result is false with a nil error.
func (g *Guard) CheckInsert(table string, rows []map[string]any, opts Options) (bool, error) {
	cols, ok := g.tables.Columns(table)
	if !ok {
		return true, nil
	}

	passed := true
	for i, row := range rows {
		for _, col := range cols {
			if present(row, col.Column) {
				continue
			}
			if !col.Required {
				if g.warnOptional {
					g.logger.Debug("optional meaning reference absent",
						zap.String("table", table),
						zap.String("column", col.Column),
						zap.Int("row", i))
				}
				continue
			}

			if opts.Mode == Block {
				verr := &ViolationError{Table: table, Column: col.Column, Row: i}
				g.logger.Error("blocked insert without meaning reference",
					zap.String("table", table),
					zap.String("column", col.Column),
					zap.Int("row", i),
					zap.Int("rows", len(rows)))
				return false, verr
			}

			passed = false
			g.logger.Warn("insert without meaning reference",
				zap.String("table", table),
				zap.String("column", col.Column),
				zap.Int("row", i),
				zap.String("row_preview", preview(row)))
		}
	}
	return passed, nil
}

// CheckInsertOne is CheckInsert for a single row.
func (g *Guard) CheckInsertOne(table string, row map[string]any, opts Options) (bool, error) {
	return g.CheckInsert(table, []map[string]any{row}, opts)
}

// present reports whether row holds a usable value for column.
func present(row map[string]any, column string) bool {
	v, ok := row[column]
	if !ok || v == nil {
		return false
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s) != ""
	case *string:
		return s != nil && strings.TrimSpace(*s) != ""
	}
	return true
}

// preview renders row as JSON truncated to at most maxRowPreview bytes,
// cut on a rune boundary.
func preview(row map[string]any) string {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Sprintf("%v", row)
	}
	if len(data) <= maxRowPreview {
		return string(data)
	}
	cut := maxRowPreview
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return string(data[:cut]) + "..."
}
