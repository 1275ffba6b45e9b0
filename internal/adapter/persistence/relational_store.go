// Package persistence implements the report stores on PostgreSQL. Every
// tenant lives in its own schema; queries are assembled per domain from the
// typed filter and the resolved org-unit scope.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/pkg/apperror"
)

// RelationalReportStore implements RelationalStore using PostgreSQL.
type RelationalReportStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewRelationalReportStore creates a new PostgreSQL report store.
func NewRelationalReportStore(db *sql.DB, logger *logrus.Logger) *RelationalReportStore {
	return &RelationalReportStore{db: db, logger: logger}
}

// Aggregate runs the grouped aggregation for the given filter spec. A
// negative pageSize disables the limit.
func (r *RelationalReportStore) Aggregate(ctx context.Context, tenant string, spec filters.Spec, scope domain.ScopeConstraint, page, pageSize int) ([]domain.AggregationRecord, error) {
	if f, ok := spec.(filters.IssueFilter); ok {
		switch f.Calculation() {
		case filters.CalcSprintMapping, filters.CalcSprintMappingCount:
			return r.sprintMappingRecords(ctx, tenant, f, scope, page, pageSize)
		case filters.CalcStageTimes:
			q := buildStageTimeQuery(tenant, f, scope)
			return q.run(ctx, r.db, page, pageSize)
		}
	}
	q, err := r.buildQuery(tenant, spec, scope)
	if err != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{
		"tenant":      tenant,
		"domain":      spec.Domain(),
		"across":      spec.Across(),
		"calculation": spec.Calculation(),
	}).Debug("running relational aggregation")
	return q.run(ctx, r.db, page, pageSize)
}

// Count runs the count-only variant of the same filter.
func (r *RelationalReportStore) Count(ctx context.Context, tenant string, spec filters.Spec, scope domain.ScopeConstraint) (int64, error) {
	if f, ok := spec.(filters.IssueFilter); ok {
		switch f.Calculation() {
		case filters.CalcSprintMapping, filters.CalcSprintMappingCount:
			return r.sprintMappingCount(ctx, tenant, f, scope)
		}
	}
	q, err := r.buildQuery(tenant, spec, scope)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.QueryRowContext(ctx, q.countSQL(), q.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", spec.Domain(), err)
	}
	return count, nil
}

func (r *RelationalReportStore) buildQuery(tenant string, spec filters.Spec, scope domain.ScopeConstraint) (*aggQuery, error) {
	switch f := spec.(type) {
	case filters.JobRunFilter:
		return buildJobRunQuery(tenant, f, scope)
	case filters.IssueFilter:
		return buildIssueQuery(tenant, f, scope)
	case filters.CommitFilter:
		return buildCommitQuery(tenant, f, scope)
	case filters.TicketFilter:
		return buildTicketQuery(tenant, f, scope)
	}
	return nil, apperror.NewBadRequest(fmt.Sprintf("unsupported report domain %q", spec.Domain()))
}

// tenantTable qualifies a table with the tenant schema.
func tenantTable(tenant, table string) string {
	return pq.QuoteIdentifier(tenant) + "." + table
}

// whereBuilder accumulates parameterized conditions.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// in adds an inclusion condition when vals is non-empty.
func (b *whereBuilder) in(col string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b.conds = append(b.conds, fmt.Sprintf("%s = ANY(%s)", col, b.arg(pq.Array(vals))))
}

// notIn adds an exclusion condition when vals is non-empty.
func (b *whereBuilder) notIn(col string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b.conds = append(b.conds, fmt.Sprintf("NOT (%s = ANY(%s))", col, b.arg(pq.Array(vals))))
}

// overlaps adds an array-overlap condition for text[] columns.
func (b *whereBuilder) overlaps(col string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b.conds = append(b.conds, fmt.Sprintf("%s && %s", col, b.arg(pq.Array(vals))))
}

// notOverlaps excludes rows whose array column shares any of vals.
func (b *whereBuilder) notOverlaps(col string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b.conds = append(b.conds, fmt.Sprintf("NOT (%s && %s)", col, b.arg(pq.Array(vals))))
}

// rng bounds col to a half-open window.
func (b *whereBuilder) rng(col string, r filters.Range) {
	if r.Start != nil {
		b.conds = append(b.conds, fmt.Sprintf("%s > %s", col, b.arg(*r.Start)))
	}
	if r.End != nil {
		b.conds = append(b.conds, fmt.Sprintf("%s < %s", col, b.arg(*r.End)))
	}
}

// match adds the partial-match condition for one column.
func (b *whereBuilder) match(col string, m filters.Match) {
	switch {
	case m.Contains != "":
		b.conds = append(b.conds, fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, b.arg(m.Contains)))
	case m.Begins != "":
		b.conds = append(b.conds, fmt.Sprintf("%s ILIKE %s || '%%'", col, b.arg(m.Begins)))
	case m.Ends != "":
		b.conds = append(b.conds, fmt.Sprintf("%s ILIKE '%%' || %s", col, b.arg(m.Ends)))
	}
}

// scope merges resolved org-unit predicates. Predicate names map straight
// onto columns of the domain table; unknown names are skipped rather than
// failing the query, since scope configuration evolves independently.
func (b *whereBuilder) scope(scope domain.ScopeConstraint, columns map[string]string) {
	for field, vals := range scope.Predicates {
		col, ok := columns[field]
		if !ok {
			continue
		}
		b.in(col, vals)
	}
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// aggQuery is an assembled aggregation, ready to run with paging.
type aggQuery struct {
	table        string
	acrossExpr   string
	durationExpr string
	calculation  filters.Calculation
	where        string
	orderBy      string
	args         []interface{}
	// ungrouped collapses the whole result set into a single record, for
	// across=none count calls.
	ungrouped bool
}

// selectSQL renders the grouped aggregation. Count-flavored calculations
// skip the time statistics.
func (q *aggQuery) selectSQL(page, pageSize int) string {
	var b strings.Builder
	b.WriteString("SELECT " + q.acrossExpr + " AS key, COUNT(*) AS ct")
	if q.statistical() {
		b.WriteString(fmt.Sprintf(
			", MIN(%[1]s) AS mn, MAX(%[1]s) AS mx, AVG(%[1]s) AS mean"+
				", PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %[1]s) AS median"+
				", PERCENTILE_CONT(0.9) WITHIN GROUP (ORDER BY %[1]s) AS p90"+
				", PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY %[1]s) AS p95",
			q.durationExpr))
	}
	b.WriteString(" FROM " + q.table + q.where)
	if !q.ungrouped {
		// Grouping by the output alias keeps set-returning across
		// expressions (array unnests) legal.
		b.WriteString(" GROUP BY key")
		if q.orderBy != "" {
			b.WriteString(" ORDER BY " + q.orderBy)
		}
	}
	if pageSize >= 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, page*pageSize))
	}
	return b.String()
}

func (q *aggQuery) countSQL() string {
	return fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s%s", q.acrossExpr, q.table, q.where)
}

// statistical reports whether the query carries time statistics. Domains
// without a duration expression always aggregate counts only.
func (q *aggQuery) statistical() bool {
	if q.durationExpr == "" {
		return false
	}
	return q.calculation == filters.CalcDuration || q.calculation == filters.CalcStageTimes
}

func (q *aggQuery) run(ctx context.Context, db *sql.DB, page, pageSize int) ([]domain.AggregationRecord, error) {
	if page < 0 {
		page = 0
	}
	rows, err := db.QueryContext(ctx, q.selectSQL(page, pageSize), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	defer rows.Close()

	records := []domain.AggregationRecord{}
	for rows.Next() {
		var rec domain.AggregationRecord
		var key sql.NullString
		if q.statistical() {
			var mn, mx, mean, median, p90, p95 sql.NullFloat64
			if err := rows.Scan(&key, &rec.Count, &mn, &mx, &mean, &median, &p90, &p95); err != nil {
				return nil, fmt.Errorf("failed to scan aggregation row: %w", err)
			}
			rec.Min = int64(mn.Float64)
			rec.Max = int64(mx.Float64)
			rec.Mean = mean.Float64
			rec.Median = int64(median.Float64)
			rec.P90 = int64(p90.Float64)
			rec.P95 = int64(p95.Float64)
		} else {
			if err := rows.Scan(&key, &rec.Count); err != nil {
				return nil, fmt.Errorf("failed to scan aggregation row: %w", err)
			}
		}
		rec.Key = key.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aggregation rows: %w", err)
	}
	return records, nil
}

// orderFor renders the ORDER BY clause from a parsed sort map. Only sorts
// on the grouped key or the count are expressible after grouping; anything
// else falls back to the key.
func orderFor(sort map[string]filters.SortOrder, across string) string {
	for field, order := range sort {
		dir := "ASC"
		if order == filters.SortDesc {
			dir = "DESC"
		}
		if field == "count" {
			return "ct " + dir
		}
		if field == across {
			return "key " + dir
		}
	}
	return "key ASC"
}
