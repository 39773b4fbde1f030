package postgres

import (
	"fmt"
	"strings"

	"github.com/numeraire/swissknife-go/internal/store"
)

// clauseBuilder accumulates WHERE conditions and their positional args,
// a "conditions []string + args []any" pattern instead of a query-builder
// dependency.
type clauseBuilder struct {
	conditions []string
	args       []interface{}
}

func (c *clauseBuilder) add(cond string, arg interface{}) {
	c.conditions = append(c.conditions, fmt.Sprintf(cond, len(c.args)+1))
	c.args = append(c.args, arg)
}

func (c *clauseBuilder) where() string {
	if len(c.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.conditions, " AND ")
}

// orderLimit returns the ORDER BY / LIMIT / OFFSET suffix for f on column,
// appending the LIMIT/OFFSET values to c's positional args.
func orderLimit(c *clauseBuilder, column string, f store.Filter) string {
	dir := "DESC"
	if f.OrderDirection == store.OrderAsc {
		dir = "ASC"
	}
	suffix := fmt.Sprintf("ORDER BY %s %s", column, dir)

	if f.Limit != nil {
		c.args = append(c.args, *f.Limit)
		suffix += fmt.Sprintf(" LIMIT $%d", len(c.args))
	}
	if f.Offset != nil {
		c.args = append(c.args, *f.Offset)
		suffix += fmt.Sprintf(" OFFSET $%d", len(c.args))
	}
	return suffix
}
