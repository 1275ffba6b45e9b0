package filters

import (
	"github.com/devlens/devlens/internal/domain"
)

var commitAcrossValues = map[string]bool{
	"trend":      true,
	"author":     true,
	"committer":  true,
	"repo_id":    true,
	"project":    true,
	"branch":     true,
	"file_type":  true,
}

var commitPartialMatchFields = map[string]bool{
	"author":    true,
	"committer": true,
	"repo_id":   true,
	"branch":    true,
	"message":   true,
}

// CommitFilter is the typed filter for source-control activity reports.
type CommitFilter struct {
	across      string
	customField string
	calculation Calculation

	Authors          []string
	ExcludeAuthors   []string
	Committers       []string
	ExcludeCommitters []string
	RepoIDs          []string
	ExcludeRepoIDs   []string
	Projects         []string
	ExcludeProjects  []string
	Branches         []string
	ExcludeBranches  []string
	FileTypes        []string
	ExcludeFileTypes []string

	PartialMatches  map[string]Match
	CommittedRange  Range
	Sort            map[string]SortOrder

	integrationIDs []string
}

// ParseCommitFilter normalizes a generic request into a commit filter.
func ParseCommitFilter(req domain.ListRequest, calc Calculation) (CommitFilter, error) {
	f := CommitFilter{calculation: calc}
	f.across, f.customField = ResolveAcross(req.Across, AcrossTrend, commitAcrossValues)

	var err error
	pairs := []struct {
		field            string
		include, exclude *[]string
	}{
		{"authors", &f.Authors, &f.ExcludeAuthors},
		{"committers", &f.Committers, &f.ExcludeCommitters},
		{"repo_ids", &f.RepoIDs, &f.ExcludeRepoIDs},
		{"projects", &f.Projects, &f.ExcludeProjects},
		{"branches", &f.Branches, &f.ExcludeBranches},
		{"file_types", &f.FileTypes, &f.ExcludeFileTypes},
	}
	for _, p := range pairs {
		if *p.include, *p.exclude, err = ListPair(req, p.field); err != nil {
			return CommitFilter{}, err
		}
	}
	if f.PartialMatches, err = PartialMatches(req, commitPartialMatchFields); err != nil {
		return CommitFilter{}, err
	}
	if f.CommittedRange, err = TimeRange(req.Filter, "committed_at"); err != nil {
		return CommitFilter{}, err
	}
	f.Sort = SortFor(req, f.across)
	f.integrationIDs = req.FilterStrings("integration_ids")
	return f, nil
}

func (f CommitFilter) Domain() ReportDomain     { return DomainCommit }
func (f CommitFilter) Across() string           { return f.across }
func (f CommitFilter) Calculation() Calculation { return f.calculation }
func (f CommitFilter) IntegrationIDs() []string { return f.integrationIDs }

func (f CommitFilter) WithAcross(field string) Spec {
	out := f
	out.across, out.customField = ResolveAcross(field, field, commitAcrossValues)
	out.Sort = map[string]SortOrder{field: SortAsc}
	return out
}

type commitHashPayload struct {
	Domain      ReportDomain `json:"domain"`
	Across      string       `json:"across"`
	CustomField string       `json:"custom_field"`
	Calculation Calculation  `json:"calculation"`

	Authors           []string `json:"authors"`
	ExcludeAuthors    []string `json:"exclude_authors"`
	Committers        []string `json:"committers"`
	ExcludeCommitters []string `json:"exclude_committers"`
	RepoIDs           []string `json:"repo_ids"`
	ExcludeRepoIDs    []string `json:"exclude_repo_ids"`
	Projects          []string `json:"projects"`
	ExcludeProjects   []string `json:"exclude_projects"`
	Branches          []string `json:"branches"`
	ExcludeBranches   []string `json:"exclude_branches"`
	FileTypes         []string `json:"file_types"`
	ExcludeFileTypes  []string `json:"exclude_file_types"`

	PartialMatches []fieldMatch `json:"partial_matches"`
	CommittedRange Range        `json:"committed_range"`
	Sort           []keyValue   `json:"sort"`
	IntegrationIDs []string     `json:"integration_ids"`
}

func (f CommitFilter) CacheHash() string {
	return contentHash(commitHashPayload{
		Domain:      DomainCommit,
		Across:      f.across,
		CustomField: f.customField,
		Calculation: f.calculation,

		Authors:           sortedCopy(f.Authors),
		ExcludeAuthors:    sortedCopy(f.ExcludeAuthors),
		Committers:        sortedCopy(f.Committers),
		ExcludeCommitters: sortedCopy(f.ExcludeCommitters),
		RepoIDs:           sortedCopy(f.RepoIDs),
		ExcludeRepoIDs:    sortedCopy(f.ExcludeRepoIDs),
		Projects:          sortedCopy(f.Projects),
		ExcludeProjects:   sortedCopy(f.ExcludeProjects),
		Branches:          sortedCopy(f.Branches),
		ExcludeBranches:   sortedCopy(f.ExcludeBranches),
		FileTypes:         sortedCopy(f.FileTypes),
		ExcludeFileTypes:  sortedCopy(f.ExcludeFileTypes),

		PartialMatches: sortedMatches(f.PartialMatches),
		CommittedRange: f.CommittedRange,
		Sort:           sortedSorts(f.Sort),
		IntegrationIDs: sortedCopy(f.integrationIDs),
	})
}
