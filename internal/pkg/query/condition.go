package query

import "fmt"

// Condition is one WHERE predicate. SQL receives the index of its first
// parameter and returns the fragment with the parameters it binds.
type Condition interface {
	SQL(paramIndex int) (string, map[string]any)
}

type eqCondition struct {
	field string
	value any
}

// Eq matches rows where field equals value: "field = @p0".
func Eq(field string, value any) Condition {
	return &eqCondition{field: field, value: value}
}

func (c *eqCondition) SQL(paramIndex int) (string, map[string]any) {
	name := paramName(paramIndex)
	return fmt.Sprintf("%s = @%s", c.field, name), map[string]any{name: c.value}
}

type prefixCondition struct {
	field  string
	prefix string
}

// HasPrefix matches rows whose string field starts with prefix: "STARTS_WITH(field, @p0)".
func HasPrefix(field, prefix string) Condition {
	return &prefixCondition{field: field, prefix: prefix}
}

func (c *prefixCondition) SQL(paramIndex int) (string, map[string]any) {
	name := paramName(paramIndex)
	return fmt.Sprintf("STARTS_WITH(%s, @%s)", c.field, name), map[string]any{name: c.prefix}
}

func paramName(index int) string {
	return fmt.Sprintf("p%d", index)
}
