package persistence

import (
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
)

var commitColumns = map[string]string{
	"author":    "author",
	"committer": "committer",
	"repo_id":   "repo_id",
	"project":   "project",
	"branch":    "branch",
	"message":   "message",
}

var commitAcrossExprs = map[string]string{
	"author":    "author",
	"committer": "committer",
	"repo_id":   "repo_id",
	"project":   "project",
	"branch":    "branch",
	"file_type": "unnest(file_types)",
	"trend":     "to_char(to_timestamp(committed_at), 'YYYY-MM-DD')",
}

func buildCommitQuery(tenant string, f filters.CommitFilter, scope domain.ScopeConstraint) (*aggQuery, error) {
	b := &whereBuilder{}
	b.in("author", f.Authors)
	b.notIn("author", f.ExcludeAuthors)
	b.in("committer", f.Committers)
	b.notIn("committer", f.ExcludeCommitters)
	b.in("repo_id", f.RepoIDs)
	b.notIn("repo_id", f.ExcludeRepoIDs)
	b.in("project", f.Projects)
	b.notIn("project", f.ExcludeProjects)
	b.in("branch", f.Branches)
	b.notIn("branch", f.ExcludeBranches)
	b.overlaps("file_types", f.FileTypes)
	b.notOverlaps("file_types", f.ExcludeFileTypes)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("committed_at", f.CommittedRange)
	for field, m := range f.PartialMatches {
		if col, ok := commitColumns[field]; ok {
			b.match(col, m)
		}
	}
	b.scope(scope, commitColumns)

	expr, ungrouped := acrossColumn(commitAcrossExprs, f.Across(), "", "", b)
	return &aggQuery{
		table:       tenantTable(tenant, "commits"),
		acrossExpr:  expr,
		calculation: f.Calculation(),
		where:       b.clause(),
		orderBy:     orderFor(f.Sort, f.Across()),
		args:        b.args,
		ungrouped:   ungrouped,
	}, nil
}
