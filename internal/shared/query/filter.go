// Package query defines the backend-agnostic filter, ordering and patch
// specifications the data stores translate into their native query forms:
// parameterized SQL, gorm method chains, or in-memory predicate evaluation.
package query

import (
	"fmt"
	"strings"

	"parceldesk/internal/shared/errors"
)

// Op is a predicate operator.
type Op string

const (
	OpEq       Op = "eq"
	OpContains Op = "contains" // case-insensitive substring
	OpPrefix   Op = "prefix"
	OpGTE      Op = "gte"
	OpLTE      Op = "lte"
	OpIn       Op = "in"
)

// Predicate is a single field condition. Value carries the operand for
// scalar operators; Values carries the operand set for OpIn.
type Predicate struct {
	Op     Op
	Value  any
	Values []any
}

func Eq(v any) Predicate          { return Predicate{Op: OpEq, Value: v} }
func Contains(s string) Predicate { return Predicate{Op: OpContains, Value: s} }
func Prefix(s string) Predicate   { return Predicate{Op: OpPrefix, Value: s} }
func GTE(v any) Predicate         { return Predicate{Op: OpGTE, Value: v} }
func LTE(v any) Predicate         { return Predicate{Op: OpLTE, Value: v} }
func In(vs ...any) Predicate      { return Predicate{Op: OpIn, Values: vs} }

// Pagination bounds. An unset limit defaults to DefaultLimit; requests above
// MaxLimit are clamped so an empty filter can never trigger an unbounded scan.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Filter is a declarative read specification: field conditions, an optional
// free-text search over a field set, ordering and pagination.
type Filter struct {
	Conditions map[string]Predicate

	// Search ORs a case-insensitive substring match across SearchFields
	// (schema defaults apply when empty).
	Search       string
	SearchFields []string

	Limit          int
	Offset         int
	OrderBy        string
	OrderDirection string
}

// Schema is the per-entity allow-list the translator validates filters
// against: filterable/orderable columns and search defaults.
type Schema struct {
	Table                 string
	Fields                map[string]bool
	SearchFields          []string
	DefaultOrderBy        string
	DefaultOrderDirection string
}

// Normalize validates the filter against the schema and fills defaults.
// Unknown fields are rejected rather than silently ignored.
func (f Filter) Normalize(s Schema) (Filter, error) {
	for field := range f.Conditions {
		if !s.Fields[field] {
			return Filter{}, errors.NewValidationError(
				fmt.Sprintf("unknown filter field %q for %s", field, s.Table))
		}
	}
	for _, field := range f.SearchFields {
		if !s.Fields[field] {
			return Filter{}, errors.NewValidationError(
				fmt.Sprintf("unknown search field %q for %s", field, s.Table))
		}
	}
	for field, pred := range f.Conditions {
		if err := pred.validate(); err != nil {
			return Filter{}, errors.NewValidationError(
				fmt.Sprintf("invalid predicate on %q: %v", field, err))
		}
	}

	if f.Limit < 0 {
		return Filter{}, errors.NewValidationError("limit must be a non-negative integer")
	}
	if f.Offset < 0 {
		return Filter{}, errors.NewValidationError("offset must be a non-negative integer")
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	if f.Search != "" && len(f.SearchFields) == 0 {
		f.SearchFields = s.SearchFields
	}

	if f.OrderBy == "" {
		f.OrderBy = s.DefaultOrderBy
		if f.OrderDirection == "" {
			f.OrderDirection = s.DefaultOrderDirection
		}
	} else if !s.Fields[f.OrderBy] {
		return Filter{}, errors.NewValidationError(
			fmt.Sprintf("unknown order field %q for %s", f.OrderBy, s.Table))
	}

	switch strings.ToUpper(f.OrderDirection) {
	case "", "DESC":
		f.OrderDirection = "DESC"
	case "ASC":
		f.OrderDirection = "ASC"
	default:
		return Filter{}, errors.NewValidationError(
			fmt.Sprintf("invalid order direction %q", f.OrderDirection))
	}

	return f, nil
}

func (p Predicate) validate() error {
	switch p.Op {
	case OpEq, OpGTE, OpLTE:
		if p.Value == nil {
			return fmt.Errorf("operator %s requires a value", p.Op)
		}
	case OpContains, OpPrefix:
		if _, ok := p.Value.(string); !ok {
			return fmt.Errorf("operator %s requires a string value", p.Op)
		}
	case OpIn:
		if len(p.Values) == 0 {
			return fmt.Errorf("operator %s requires at least one value", p.Op)
		}
	default:
		return fmt.Errorf("unknown operator %q", p.Op)
	}
	return nil
}
