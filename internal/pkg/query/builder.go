// Package query builds parameterized Spanner SELECT statements.
package query

import (
	"strings"

	"cloud.google.com/go/spanner"
)

// Direction of an ORDER BY clause.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Builder is an immutable SELECT builder. Every method returns a copy, so a
// base builder can be shared between queries.
type Builder struct {
	table      string
	columns    []string
	conditions []Condition
	orderBy    []orderTerm
	limit      int64
}

type orderTerm struct {
	column    string
	direction Direction
}

// From starts a query on table.
func From(table string) *Builder {
	return &Builder{table: table}
}

// Select appends columns to the select list. An empty list selects *.
func (b *Builder) Select(columns ...string) *Builder {
	nb := b.clone()
	nb.columns = append(nb.columns, columns...)
	return nb
}

// Where adds a condition; conditions are joined with AND.
func (b *Builder) Where(condition Condition) *Builder {
	nb := b.clone()
	nb.conditions = append(nb.conditions, condition)
	return nb
}

// OrderBy appends a sort term.
func (b *Builder) OrderBy(column string, direction Direction) *Builder {
	nb := b.clone()
	nb.orderBy = append(nb.orderBy, orderTerm{column: column, direction: direction})
	return nb
}

// Limit caps the number of rows. Zero means no limit.
func (b *Builder) Limit(limit int64) *Builder {
	nb := b.clone()
	nb.limit = limit
	return nb
}

// Build renders the statement.
func (b *Builder) Build() spanner.Statement {
	var sql strings.Builder
	params := make(map[string]any)

	sql.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(b.columns, ", "))
	}
	sql.WriteString(" FROM ")
	sql.WriteString(b.table)

	if len(b.conditions) > 0 {
		parts := make([]string, 0, len(b.conditions))
		for _, c := range b.conditions {
			fragment, cp := c.SQL(len(params))
			parts = append(parts, fragment)
			for k, v := range cp {
				params[k] = v
			}
		}
		sql.WriteString(" WHERE ")
		sql.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		terms := make([]string, 0, len(b.orderBy))
		for _, t := range b.orderBy {
			dir := " ASC"
			if t.direction == Desc {
				dir = " DESC"
			}
			terms = append(terms, t.column+dir)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(terms, ", "))
	}

	if b.limit > 0 {
		sql.WriteString(" LIMIT @limit")
		params["limit"] = b.limit
	}

	return spanner.Statement{SQL: sql.String(), Params: params}
}

func (b *Builder) clone() *Builder {
	return &Builder{
		table:      b.table,
		columns:    append([]string(nil), b.columns...),
		conditions: append([]Condition(nil), b.conditions...),
		orderBy:    append([]orderTerm(nil), b.orderBy...),
		limit:      b.limit,
	}
}
