package datastore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"parceldesk/internal/shared/query"
)

// SQLTranslator turns filter and patch specifications into parameterized SQL
// for the MySQL backend. Column names come exclusively from the schema
// allow-list and the placeholder args carry all caller data, so no
// caller-supplied string is ever interpolated into the statement text.
type SQLTranslator struct{}

func NewSQLTranslator() *SQLTranslator {
	return &SQLTranslator{}
}

// Select builds a SELECT statement for a normalized filter. The filter must
// already have passed Normalize against the same schema.
func (tr *SQLTranslator) Select(schema query.Schema, f query.Filter) (string, []any, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT * FROM ")
	sb.WriteString(schema.Table)

	whereSQL, whereArgs, err := tr.where(f)
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(f.OrderBy)
	sb.WriteString(" ")
	sb.WriteString(f.OrderDirection)

	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	return sb.String(), args, nil
}

// Update builds an UPDATE statement from a validated patch. Fields are
// emitted in sorted order so the statement text is deterministic.
func (tr *SQLTranslator) Update(table string, id uint, patch query.Patch) (string, []any) {
	fields := patch.SortedFields()

	var sb strings.Builder
	args := make([]any, 0, len(fields)+1)

	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, field := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(field)
		sb.WriteString(" = ?")
		args = append(args, normalizeArg(patch[field]))
	}
	sb.WriteString(" WHERE id = ?")
	args = append(args, id)

	return sb.String(), args
}

// Delete builds a DELETE statement by primary key.
func (tr *SQLTranslator) Delete(table string, id uint) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), []any{id}
}

func (tr *SQLTranslator) where(f query.Filter) (string, []any, error) {
	var clauses []string
	var args []any

	fields := make([]string, 0, len(f.Conditions))
	for field := range f.Conditions {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		pred := f.Conditions[field]
		clause, clauseArgs, err := tr.predicate(field, pred)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	if f.Search != "" && len(f.SearchFields) > 0 {
		parts := make([]string, 0, len(f.SearchFields))
		needle := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		for _, field := range f.SearchFields {
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE ?", field))
			args = append(args, needle)
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), args, nil
}

func (tr *SQLTranslator) predicate(field string, p query.Predicate) (string, []any, error) {
	switch p.Op {
	case query.OpEq:
		return field + " = ?", []any{normalizeArg(p.Value)}, nil
	case query.OpContains:
		s, _ := p.Value.(string)
		return fmt.Sprintf("LOWER(%s) LIKE ?", field),
			[]any{"%" + escapeLike(strings.ToLower(s)) + "%"}, nil
	case query.OpPrefix:
		s, _ := p.Value.(string)
		return field + " LIKE ?", []any{escapeLike(s) + "%"}, nil
	case query.OpGTE:
		return field + " >= ?", []any{normalizeArg(p.Value)}, nil
	case query.OpLTE:
		return field + " <= ?", []any{normalizeArg(p.Value)}, nil
	case query.OpIn:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
		args := make([]any, 0, len(p.Values))
		for _, v := range p.Values {
			args = append(args, normalizeArg(v))
		}
		return fmt.Sprintf("%s IN (%s)", field, placeholders), args, nil
	default:
		return "", nil, fmt.Errorf("unknown operator %q", p.Op)
	}
}

// normalizeArg converts filter values to their column representation.
// Timestamps are stored as Unix milliseconds.
func normalizeArg(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UnixMilli()
	default:
		return v
	}
}

// escapeLike escapes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
