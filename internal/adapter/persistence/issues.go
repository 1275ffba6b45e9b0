package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
)

// issueColumns maps filter fields to scalar columns, for partial matches
// and scope predicates.
var issueColumns = map[string]string{
	"project":        "project",
	"status":         "status",
	"priority":       "priority",
	"issue_type":     "issue_type",
	"assignee":       "assignee",
	"reporter":       "reporter",
	"epic":           "epic",
	"summary":        "summary",
	"velocity_stage": "velocity_stage",
	"sprint_name":    "sprint_name",
}

// issueAcrossExprs maps grouping dimensions to SQL expressions. Array-typed
// dimensions unnest so each element becomes its own bucket.
var issueAcrossExprs = map[string]string{
	"project":         "project",
	"status":          "status",
	"priority":        "priority",
	"issue_type":      "issue_type",
	"assignee":        "assignee",
	"reporter":        "reporter",
	"epic":            "epic",
	"velocity_stage":  "velocity_stage",
	"sprint":          "sprint_name",
	"label":           "unnest(labels)",
	"component":       "unnest(components)",
	"version":         "unnest(versions)",
	"ticket_category": "category",
	"trend":           "to_char(to_timestamp(issue_created_at), 'YYYY-MM-DD')",
}

// issueWhere renders the shared issue conditions with an optional column
// prefix, for queries that join the issues table under an alias.
func issueWhere(b *whereBuilder, f filters.IssueFilter, p string) {
	b.in(p+"key", f.Keys)
	b.notIn(p+"key", f.ExcludeKeys)
	b.in(p+"project", f.Projects)
	b.notIn(p+"project", f.ExcludeProjects)
	b.in(p+"status", f.Statuses)
	b.notIn(p+"status", f.ExcludeStatuses)
	b.in(p+"priority", f.Priorities)
	b.notIn(p+"priority", f.ExcludePriorities)
	b.in(p+"issue_type", f.IssueTypes)
	b.notIn(p+"issue_type", f.ExcludeIssueTypes)
	b.in(p+"assignee", f.Assignees)
	b.notIn(p+"assignee", f.ExcludeAssignees)
	b.in(p+"reporter", f.Reporters)
	b.notIn(p+"reporter", f.ExcludeReporters)
	b.overlaps(p+"labels", f.Labels)
	b.notOverlaps(p+"labels", f.ExcludeLabels)
	b.overlaps(p+"components", f.Components)
	b.notOverlaps(p+"components", f.ExcludeComponents)
	b.in(p+"epic", f.Epics)
	b.notIn(p+"epic", f.ExcludeEpics)
	b.overlaps(p+"versions", f.Versions)
	b.notOverlaps(p+"versions", f.ExcludeVersions)
	b.in(p+"velocity_stage", f.VelocityStages)
	b.notIn(p+"velocity_stage", f.ExcludeVelocityStages)
	b.in(p+"integration_id", f.IntegrationIDs())
	b.rng(p+"issue_created_at", f.CreatedRange)
	b.rng(p+"issue_updated_at", f.UpdatedRange)
	b.rng(p+"issue_resolved_at", f.ResolvedRange)
	for field, value := range f.CustomFields {
		b.conds = append(b.conds, fmt.Sprintf("%scustom_fields->>%s = %s", p, b.arg(field), b.arg(value)))
	}
	for field, m := range f.PartialMatches {
		if col, ok := issueColumns[field]; ok {
			b.match(p+col, m)
		}
	}
}

func buildIssueQuery(tenant string, f filters.IssueFilter, scope domain.ScopeConstraint) (*aggQuery, error) {
	b := &whereBuilder{}
	issueWhere(b, f, "")
	b.scope(scope, issueColumns)

	table := tenantTable(tenant, "issues")
	// Ticket-category grouping and filtering read the per-scheme category
	// assignments. This join is why such requests never go to the search
	// index.
	if f.TicketCategorySpecified(nil) {
		table += " JOIN " + tenantTable(tenant, "issue_categories") + " ON issue_key = key"
		if f.TicketCategorizationSchemeID != "" {
			b.conds = append(b.conds, "scheme_id = "+b.arg(f.TicketCategorizationSchemeID))
		}
		b.in("category", f.TicketCategories)
	}

	expr, ungrouped := acrossColumn(issueAcrossExprs, f.Across(), f.CustomField(), "custom_fields", b)
	return &aggQuery{
		table:        table,
		acrossExpr:   expr,
		durationExpr: "(issue_resolved_at - issue_created_at)",
		calculation:  f.Calculation(),
		where:        b.clause(),
		orderBy:      orderFor(f.Sort, f.Across()),
		args:         b.args,
		ungrouped:    ungrouped,
	}, nil
}

// buildStageTimeQuery measures seconds spent per workflow stage. Stage
// durations live in their own table; issue-level filters apply through a
// join.
func buildStageTimeQuery(tenant string, f filters.IssueFilter, scope domain.ScopeConstraint) *aggQuery {
	b := &whereBuilder{}
	issueWhere(b, f, "i.")
	b.scope(scope, prefixed("i.", issueColumns))

	table := tenantTable(tenant, "issue_stage_times") + " st JOIN " +
		tenantTable(tenant, "issues") + " i ON i.key = st.issue_key"
	return &aggQuery{
		table:        table,
		acrossExpr:   "st.stage",
		durationExpr: "st.duration_seconds",
		calculation:  f.Calculation(),
		where:        b.clause(),
		orderBy:      "key ASC",
		args:         b.args,
	}
}

func prefixed(p string, columns map[string]string) map[string]string {
	out := make(map[string]string, len(columns))
	for k, v := range columns {
		out[k] = p + v
	}
	return out
}

// sprintMappingWhere renders the sprint-level conditions.
func sprintMappingWhere(b *whereBuilder, f filters.IssueFilter) {
	sm := f.SprintMapping
	if sm.SprintState != "" {
		b.conds = append(b.conds, "state = "+b.arg(sm.SprintState))
	}
	b.in("sprint_name", sm.SprintNames)
	b.notIn("sprint_name", sm.ExcludeSprintNames)
	b.match("sprint_name", filters.Match{
		Contains: sm.SprintNameContains,
		Begins:   sm.SprintNameStartsWith,
		Ends:     sm.SprintNameEndsWith,
	})
	b.rng("completed_at", filters.Range{Start: sm.CompletedAtAfter, End: sm.CompletedAtBefore})
	b.rng("started_at", filters.Range{Start: sm.StartedAtAfter, End: sm.StartedAtBefore})
	b.rng("planned_ended_at", filters.Range{Start: sm.PlannedEndedAtAfter, End: sm.PlannedEndedAtBefore})
	if sm.IgnorableIssueType != nil {
		b.conds = append(b.conds, "ignorable_issue_type = "+b.arg(*sm.IgnorableIssueType))
	}
	b.in("integration_id", f.IntegrationIDs())
}

// sprintMappingRecords returns one record per issue-sprint mapping, most
// recently completed sprints first. Paging applies to sprints, not to
// mapping rows, so a page always carries whole sprints.
func (r *RelationalReportStore) sprintMappingRecords(ctx context.Context, tenant string, f filters.IssueFilter, scope domain.ScopeConstraint, page, pageSize int) ([]domain.AggregationRecord, error) {
	b := &whereBuilder{}
	sprintMappingWhere(b, f)
	table := tenantTable(tenant, "sprint_mappings")
	where := b.clause()

	outer := where
	if pageSize >= 0 {
		if page < 0 {
			page = 0
		}
		// Placeholders repeat in the subquery; args are passed once.
		sprints := fmt.Sprintf(`sprint_id IN (
			SELECT sprint_id FROM %s%s GROUP BY sprint_id
			ORDER BY MAX(completed_at) DESC LIMIT %d OFFSET %d)`,
			table, where, pageSize, page*pageSize)
		if outer == "" {
			outer = " WHERE " + sprints
		} else {
			outer += " AND " + sprints
		}
	}
	query := fmt.Sprintf(`
		SELECT sprint_id, sprint_name, sprint_goal, started_at, completed_at, planned_ended_at,
		       issue_key, issue_type, issue_status, story_points_planned, story_points_delivered,
		       added_at, planned, delivered, outside_of_sprint
		FROM %s%s
		ORDER BY completed_at DESC, sprint_id, issue_key`, table, outer)

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint mappings: %w", err)
	}
	defer rows.Close()

	records := []domain.AggregationRecord{}
	for rows.Next() {
		var m domain.SprintMappingRecord
		var goal sql.NullString
		if err := rows.Scan(&m.SprintID, &m.SprintName, &goal, &m.StartedAt, &m.CompletedAt, &m.PlannedEndedAt,
			&m.Issue.Key, &m.Issue.Type, &m.Issue.Status, &m.Issue.StoryPointsPlanned, &m.Issue.StoryPointsDelivered,
			&m.Issue.AddedAt, &m.Issue.Planned, &m.Issue.Delivered, &m.Issue.OutsideOfSprint); err != nil {
			return nil, fmt.Errorf("failed to scan sprint mapping row: %w", err)
		}
		m.SprintGoal = goal.String
		mapping := m
		records = append(records, domain.AggregationRecord{
			Key:           m.SprintID,
			AdditionalKey: m.SprintName,
			Count:         1,
			SprintMapping: &mapping,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sprint mapping rows: %w", err)
	}
	return records, nil
}

// sprintMappingCount counts distinct sprints matching the filter.
func (r *RelationalReportStore) sprintMappingCount(ctx context.Context, tenant string, f filters.IssueFilter, scope domain.ScopeConstraint) (int64, error) {
	b := &whereBuilder{}
	sprintMappingWhere(b, f)
	query := fmt.Sprintf("SELECT COUNT(DISTINCT sprint_id) FROM %s%s",
		tenantTable(tenant, "sprint_mappings"), b.clause())
	var count int64
	if err := r.db.QueryRowContext(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sprints: %w", err)
	}
	return count, nil
}

// List serves flat issue drilldowns with the total row count.
func (r *RelationalReportStore) List(ctx context.Context, tenant string, f filters.IssueFilter, scope domain.ScopeConstraint, page, pageSize int) ([]domain.IssueRow, int64, error) {
	b := &whereBuilder{}
	issueWhere(b, f, "")
	b.scope(scope, issueColumns)
	table := tenantTable(tenant, "issues")
	where := b.clause()

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	if err := r.db.QueryRowContext(ctx, countQuery, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count issues: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT key, project, summary, status, priority, issue_type, assignee, reporter,
		       labels, components, epic, story_points, issue_created_at, issue_updated_at, issue_resolved_at
		FROM %s%s
		ORDER BY issue_created_at DESC, key
		LIMIT %d OFFSET %d`, table, where, pageSize, page*pageSize)
	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	out := []domain.IssueRow{}
	for rows.Next() {
		var row domain.IssueRow
		var summary, status, priority, issueType, assignee, reporter, epic sql.NullString
		var points sql.NullFloat64
		var resolved sql.NullInt64
		if err := rows.Scan(&row.Key, &row.Project, &summary, &status, &priority, &issueType, &assignee, &reporter,
			pq.Array(&row.Labels), pq.Array(&row.Components), &epic, &points,
			&row.IssueCreated, &row.IssueUpdated, &resolved); err != nil {
			return nil, 0, fmt.Errorf("failed to scan issue row: %w", err)
		}
		row.Summary = summary.String
		row.Status = status.String
		row.Priority = priority.String
		row.IssueType = issueType.String
		row.Assignee = assignee.String
		row.Reporter = reporter.String
		row.Epic = epic.String
		row.StoryPoints = points.Float64
		row.IssueResolved = resolved.Int64
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read issue rows: %w", err)
	}
	return out, total, nil
}

// Summaries resolves issue keys to display summaries in one batch.
func (r *RelationalReportStore) Summaries(ctx context.Context, tenant string, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	query := fmt.Sprintf("SELECT key, summary FROM %s WHERE key = ANY($1)", tenantTable(tenant, "issues"))
	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to look up issue summaries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var key string
		var summary sql.NullString
		if err := rows.Scan(&key, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan issue summary: %w", err)
		}
		if summary.Valid {
			out[key] = summary.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read issue summaries: %w", err)
	}
	return out, nil
}
