package filters

import (
	"github.com/devlens/devlens/internal/domain"
)

var ticketAcrossValues = map[string]bool{
	"trend":     true,
	"status":    true,
	"priority":  true,
	"type":      true,
	"brand":     true,
	"assignee":  true,
	"submitter": true,
	"requester": true,
}

var ticketPartialMatchFields = map[string]bool{
	"subject":   true,
	"brand":     true,
	"assignee":  true,
	"submitter": true,
	"requester": true,
}

// TicketFilter is the typed filter for support-ticket reports.
type TicketFilter struct {
	across      string
	customField string
	calculation Calculation

	Statuses          []string
	ExcludeStatuses   []string
	Priorities        []string
	ExcludePriorities []string
	Types             []string
	ExcludeTypes      []string
	Brands            []string
	ExcludeBrands     []string
	Assignees         []string
	ExcludeAssignees  []string
	Submitters        []string
	ExcludeSubmitters []string
	Requesters        []string
	ExcludeRequesters []string

	PartialMatches map[string]Match
	CreatedRange   Range
	UpdatedRange   Range
	Sort           map[string]SortOrder

	integrationIDs []string
}

// ParseTicketFilter normalizes a generic request into a support-ticket filter.
func ParseTicketFilter(req domain.ListRequest, calc Calculation) (TicketFilter, error) {
	f := TicketFilter{calculation: calc}
	f.across, f.customField = ResolveAcross(req.Across, AcrossTrend, ticketAcrossValues)

	var err error
	pairs := []struct {
		field            string
		include, exclude *[]string
	}{
		{"statuses", &f.Statuses, &f.ExcludeStatuses},
		{"priorities", &f.Priorities, &f.ExcludePriorities},
		{"types", &f.Types, &f.ExcludeTypes},
		{"brands", &f.Brands, &f.ExcludeBrands},
		{"assignees", &f.Assignees, &f.ExcludeAssignees},
		{"submitters", &f.Submitters, &f.ExcludeSubmitters},
		{"requesters", &f.Requesters, &f.ExcludeRequesters},
	}
	for _, p := range pairs {
		if *p.include, *p.exclude, err = ListPair(req, p.field); err != nil {
			return TicketFilter{}, err
		}
	}
	if f.PartialMatches, err = PartialMatches(req, ticketPartialMatchFields); err != nil {
		return TicketFilter{}, err
	}
	if f.CreatedRange, err = TimeRange(req.Filter, "created_at"); err != nil {
		return TicketFilter{}, err
	}
	if f.UpdatedRange, err = TimeRange(req.Filter, "updated_at"); err != nil {
		return TicketFilter{}, err
	}
	f.Sort = SortFor(req, f.across)
	f.integrationIDs = req.FilterStrings("integration_ids")
	return f, nil
}

func (f TicketFilter) Domain() ReportDomain     { return DomainTicket }
func (f TicketFilter) Across() string           { return f.across }
func (f TicketFilter) Calculation() Calculation { return f.calculation }
func (f TicketFilter) IntegrationIDs() []string { return f.integrationIDs }

func (f TicketFilter) WithAcross(field string) Spec {
	out := f
	out.across, out.customField = ResolveAcross(field, field, ticketAcrossValues)
	out.Sort = map[string]SortOrder{field: SortAsc}
	return out
}

type ticketHashPayload struct {
	Domain      ReportDomain `json:"domain"`
	Across      string       `json:"across"`
	CustomField string       `json:"custom_field"`
	Calculation Calculation  `json:"calculation"`

	Statuses          []string `json:"statuses"`
	ExcludeStatuses   []string `json:"exclude_statuses"`
	Priorities        []string `json:"priorities"`
	ExcludePriorities []string `json:"exclude_priorities"`
	Types             []string `json:"types"`
	ExcludeTypes      []string `json:"exclude_types"`
	Brands            []string `json:"brands"`
	ExcludeBrands     []string `json:"exclude_brands"`
	Assignees         []string `json:"assignees"`
	ExcludeAssignees  []string `json:"exclude_assignees"`
	Submitters        []string `json:"submitters"`
	ExcludeSubmitters []string `json:"exclude_submitters"`
	Requesters        []string `json:"requesters"`
	ExcludeRequesters []string `json:"exclude_requesters"`

	PartialMatches []fieldMatch `json:"partial_matches"`
	CreatedRange   Range        `json:"created_range"`
	UpdatedRange   Range        `json:"updated_range"`
	Sort           []keyValue   `json:"sort"`
	IntegrationIDs []string     `json:"integration_ids"`
}

func (f TicketFilter) CacheHash() string {
	return contentHash(ticketHashPayload{
		Domain:      DomainTicket,
		Across:      f.across,
		CustomField: f.customField,
		Calculation: f.calculation,

		Statuses:          sortedCopy(f.Statuses),
		ExcludeStatuses:   sortedCopy(f.ExcludeStatuses),
		Priorities:        sortedCopy(f.Priorities),
		ExcludePriorities: sortedCopy(f.ExcludePriorities),
		Types:             sortedCopy(f.Types),
		ExcludeTypes:      sortedCopy(f.ExcludeTypes),
		Brands:            sortedCopy(f.Brands),
		ExcludeBrands:     sortedCopy(f.ExcludeBrands),
		Assignees:         sortedCopy(f.Assignees),
		ExcludeAssignees:  sortedCopy(f.ExcludeAssignees),
		Submitters:        sortedCopy(f.Submitters),
		ExcludeSubmitters: sortedCopy(f.ExcludeSubmitters),
		Requesters:        sortedCopy(f.Requesters),
		ExcludeRequesters: sortedCopy(f.ExcludeRequesters),

		PartialMatches: sortedMatches(f.PartialMatches),
		CreatedRange:   f.CreatedRange,
		UpdatedRange:   f.UpdatedRange,
		Sort:           sortedSorts(f.Sort),
		IntegrationIDs: sortedCopy(f.integrationIDs),
	})
}
