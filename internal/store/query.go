package store

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventQuery defines optional filters for search event queries.
type EventQuery struct {
	Term   *string // case-insensitive exact match
	Cached *bool
	Status *int
	Since  *time.Time
	Limit  int // default 50
	Offset int
}

const baseSearchEventsSelect = `SELECT id, term, offset_value, limit_value, results, cached, status, created_at
FROM search_events`

const countSearchEventsSelect = "SELECT COUNT(*) FROM search_events"

// ToSQL builds the data and count queries. The count query takes the
// filter parameters only; the data query appends limit and offset.
func (q *EventQuery) ToSQL() (dataSQL, countSQL string, args []any, countArgs int) {
	var conditions []string
	n := 0
	next := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if q.Term != nil {
		conditions = append(conditions, "lower(term) = lower("+next(*q.Term)+")")
	}
	if q.Cached != nil {
		conditions = append(conditions, "cached = "+next(*q.Cached))
	}
	if q.Status != nil {
		conditions = append(conditions, "status = "+next(*q.Status))
	}
	if q.Since != nil {
		conditions = append(conditions, "created_at >= "+next(*q.Since))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	countSQL = countSearchEventsSelect + where
	countArgs = len(args)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	limit = min(limit, maxEventLimit)

	offset := max(q.Offset, 0)

	dataSQL = baseSearchEventsSelect + where + " ORDER BY created_at DESC" +
		" LIMIT " + next(limit) + " OFFSET " + next(offset)

	return dataSQL, countSQL, args, countArgs
}
