package query

import (
	"fmt"
	"sort"

	"parceldesk/internal/shared/errors"
)

// Patch is a structured partial-update representation: field name to new
// value, validated against a per-entity allow-list of mutable columns before
// any backend sees it. This replaces dynamic SET-clause assembly from
// caller-supplied field names.
type Patch map[string]any

// Validate rejects an empty patch and any field outside the allow-list.
func (p Patch) Validate(entity string, mutable map[string]bool) error {
	if len(p) == 0 {
		return errors.NewValidationError(fmt.Sprintf("empty patch for %s", entity))
	}
	for field := range p {
		if !mutable[field] {
			return errors.NewValidationError(
				fmt.Sprintf("field %q of %s is not mutable", field, entity))
		}
	}
	return nil
}

// SortedFields returns the patch fields in deterministic order, for stable
// SQL generation and cache keys.
func (p Patch) SortedFields() []string {
	fields := make([]string, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
