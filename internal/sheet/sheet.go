// Package sheet defines the positional, row-oriented tabular store the pantry
// keeps its data in. Cells are dynamically typed the way a spreadsheet
// returns them: string, float64, bool, or nil for an empty cell.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowOutOfRange = errors.New("row out of range")
)

// Workbook is a collection of named tables.
type Workbook interface {
	// Table returns the named table or an error wrapping ErrTableNotFound.
	Table(ctx context.Context, name string) (Table, error)
	// CreateTable adds a new table whose first row is header.
	CreateTable(ctx context.Context, name string, header []string) (Table, error)
}

// Table is a single sheet. Row indexes are 0-based and include the header
// row, so data starts at row 1. Deleting a row shifts every later row up.
type Table interface {
	Name() string
	Rows(ctx context.Context) ([][]any, error)
	Append(ctx context.Context, row []any) error
	SetCell(ctx context.Context, row, col int, value any) error
	DeleteRow(ctx context.Context, row int) error
}

// Truthy reports whether a cell is non-empty in the spreadsheet sense:
// nil, "", 0, NaN and false are all falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

// Number coerces a cell to a number. Empty cells are 0 and text that does
// not parse is NaN.
func Number(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// String renders a cell as text. Whole numbers print without a decimal point
// so a timestamp id stored as a number matches its string form.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// LooseEqual compares two cells by their text form. Empty cells never match.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	return String(a) == String(b)
}

// IsTrue reports whether a cell holds the boolean true. Text such as "TRUE"
// does not count.
func IsTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
