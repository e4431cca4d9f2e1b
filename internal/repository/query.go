package repository

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates filter clauses and their arguments for one
// placeholder style: "?" for SQLite, "$n" for Postgres.
type whereBuilder struct {
	numbered   bool
	conditions []string
	args       []any
}

func (b *whereBuilder) placeholder(v any) string {
	b.args = append(b.args, v)
	if b.numbered {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

func (b *whereBuilder) add(format string, values ...any) {
	marks := make([]any, len(values))
	for i, v := range values {
		marks[i] = b.placeholder(v)
	}
	b.conditions = append(b.conditions, fmt.Sprintf(format, marks...))
}

func (b *whereBuilder) in(column string, values []any) {
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = b.placeholder(v)
	}
	b.conditions = append(b.conditions, column+" IN ("+strings.Join(marks, ", ")+")")
}

func (b *whereBuilder) String() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

func (b *whereBuilder) disasterFilter(opts Filter) {
	if opts.Since != nil {
		b.add("timestamp >= %s", *opts.Since)
	}
	if opts.Type != nil {
		b.add("type = %s", string(*opts.Type))
	}
	if opts.MinMagnitude != nil {
		b.add("magnitude >= %s", *opts.MinMagnitude)
	}
	if opts.AlertLevel != nil {
		b.add("alert_level = %s", string(*opts.AlertLevel))
	}
	if opts.MinAlertLevel != nil {
		levels := alertLevelsAtLeast(*opts.MinAlertLevel)
		if len(levels) == 0 {
			b.conditions = append(b.conditions, "1 = 0")
		} else {
			b.in("alert_level", levels)
		}
	}
}

func (b *whereBuilder) familyFilter(opts FamilyFilter) {
	if opts.Within != nil {
		format := "longitude BETWEEN %s AND %s AND latitude BETWEEN %s AND %s"
		if opts.IncludeUnlocated {
			format = "((" + format + ") OR longitude IS NULL OR latitude IS NULL)"
		}
		b.add(format, opts.Within.Min.Lon(), opts.Within.Max.Lon(), opts.Within.Min.Lat(), opts.Within.Max.Lat())
	}
	if opts.VulnerableOnly {
		b.add("vulnerable = %s", true)
	}
}

// page appends LIMIT/OFFSET. SQLite needs a LIMIT before any OFFSET.
func (b *whereBuilder) page(limit, offset int) string {
	var s string
	switch {
	case limit > 0:
		s = " LIMIT " + b.placeholder(limit)
	case offset > 0 && !b.numbered:
		s = " LIMIT -1"
	}
	if offset > 0 {
		s += " OFFSET " + b.placeholder(offset)
	}
	return s
}
