package persistence

import (
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
)

var ticketColumns = map[string]string{
	"status":    "status",
	"priority":  "priority",
	"type":      "type",
	"brand":     "brand",
	"assignee":  "assignee",
	"submitter": "submitter",
	"requester": "requester",
	"subject":   "subject",
}

var ticketAcrossExprs = map[string]string{
	"status":    "status",
	"priority":  "priority",
	"type":      "type",
	"brand":     "brand",
	"assignee":  "assignee",
	"submitter": "submitter",
	"requester": "requester",
	"trend":     "to_char(to_timestamp(created_at), 'YYYY-MM-DD')",
}

func buildTicketQuery(tenant string, f filters.TicketFilter, scope domain.ScopeConstraint) (*aggQuery, error) {
	b := &whereBuilder{}
	b.in("status", f.Statuses)
	b.notIn("status", f.ExcludeStatuses)
	b.in("priority", f.Priorities)
	b.notIn("priority", f.ExcludePriorities)
	b.in("type", f.Types)
	b.notIn("type", f.ExcludeTypes)
	b.in("brand", f.Brands)
	b.notIn("brand", f.ExcludeBrands)
	b.in("assignee", f.Assignees)
	b.notIn("assignee", f.ExcludeAssignees)
	b.in("submitter", f.Submitters)
	b.notIn("submitter", f.ExcludeSubmitters)
	b.in("requester", f.Requesters)
	b.notIn("requester", f.ExcludeRequesters)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("created_at", f.CreatedRange)
	b.rng("updated_at", f.UpdatedRange)
	for field, m := range f.PartialMatches {
		if col, ok := ticketColumns[field]; ok {
			b.match(col, m)
		}
	}
	b.scope(scope, ticketColumns)

	expr, ungrouped := acrossColumn(ticketAcrossExprs, f.Across(), "", "", b)
	return &aggQuery{
		table:        tenantTable(tenant, "tickets"),
		acrossExpr:   expr,
		durationExpr: "(GREATEST(updated_at - created_at, 0))",
		calculation:  f.Calculation(),
		where:        b.clause(),
		orderBy:      orderFor(f.Sort, f.Across()),
		args:         b.args,
		ungrouped:    ungrouped,
	}, nil
}
