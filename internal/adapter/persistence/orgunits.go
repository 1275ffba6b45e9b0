package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/pkg/apperror"
)

// OrgUnitResolver expands org-unit references into attribute predicates
// from the tenant's org-unit configuration tables.
type OrgUnitResolver struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewOrgUnitResolver creates a new PostgreSQL org-unit resolver.
func NewOrgUnitResolver(db *sql.DB, logger *logrus.Logger) *OrgUnitResolver {
	return &OrgUnitResolver{db: db, logger: logger}
}

// Resolve reads the request's ou_ref_ids filter and loads the unit's
// predicates for the given integration types. Requests without an org-unit
// reference pass through unscoped. The reference key is consumed: the
// rewritten request no longer carries it.
func (r *OrgUnitResolver) Resolve(ctx context.Context, tenant string, integrationTypes []string, req domain.ListRequest) (domain.ScopeConstraint, domain.ListRequest, error) {
	refs := req.FilterStrings("ou_ref_ids")
	if len(refs) == 0 {
		return domain.ScopeConstraint{}, req, nil
	}
	ref := refs[0]

	filter := req.CopyFilter()
	delete(filter, "ou_ref_ids")
	rewritten := req.CloneWithFilter(filter)

	var unitID string
	unitQuery := fmt.Sprintf(
		"SELECT id FROM %s WHERE ref_id = $1 AND active ORDER BY version DESC LIMIT 1",
		tenantTable(tenant, "org_units"))
	err := r.db.QueryRowContext(ctx, unitQuery, ref).Scan(&unitID)
	if err == sql.ErrNoRows {
		return domain.ScopeConstraint{}, rewritten, apperror.NewScopeResolution(
			fmt.Sprintf("org unit %q not found", ref))
	}
	if err != nil {
		return domain.ScopeConstraint{}, rewritten, fmt.Errorf("failed to load org unit %q: %w", ref, err)
	}

	query := fmt.Sprintf(
		"SELECT field, values FROM %s WHERE org_unit_id = $1 AND integration_type = ANY($2)",
		tenantTable(tenant, "org_unit_filters"))
	rows, err := r.db.QueryContext(ctx, query, unitID, pq.Array(integrationTypes))
	if err != nil {
		return domain.ScopeConstraint{}, rewritten, fmt.Errorf("failed to load org unit filters: %w", err)
	}
	defer rows.Close()

	predicates := map[string][]string{}
	for rows.Next() {
		var field string
		var values []string
		if err := rows.Scan(&field, pq.Array(&values)); err != nil {
			return domain.ScopeConstraint{}, rewritten, fmt.Errorf("failed to scan org unit filter: %w", err)
		}
		predicates[field] = append(predicates[field], values...)
	}
	if err := rows.Err(); err != nil {
		return domain.ScopeConstraint{}, rewritten, fmt.Errorf("failed to read org unit filters: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"tenant":   tenant,
		"org_unit": ref,
		"fields":   len(predicates),
	}).Debug("resolved org unit scope")
	return domain.ScopeConstraint{OrgUnitID: unitID, Predicates: predicates}, rewritten, nil
}
