// Package search implements the denormalized search-index store on
// MongoDB. It always materializes full result sets; pagination is corrected
// client-side by the pipeline.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/pkg/apperror"
)

// MongoSearchStore implements SearchStore. Each tenant is a database, each
// report domain a collection of denormalized documents.
type MongoSearchStore struct {
	client *mongo.Client
	logger *logrus.Logger
}

// NewMongoSearchStore connects to MongoDB and verifies the connection.
func NewMongoSearchStore(uri string, logger *logrus.Logger) (*MongoSearchStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &MongoSearchStore{client: client, logger: logger}, nil
}

// Close disconnects the underlying client.
func (s *MongoSearchStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Aggregate runs the grouped aggregation over the search index. Page and
// pageSize are ignored: the full result comes back for client-side paging.
func (s *MongoSearchStore) Aggregate(ctx context.Context, tenant string, spec filters.Spec, stacks []string, scope domain.ScopeConstraint, page, pageSize int) ([]domain.AggregationRecord, error) {
	s.logger.WithFields(logrus.Fields{
		"tenant":      tenant,
		"domain":      spec.Domain(),
		"across":      spec.Across(),
		"calculation": spec.Calculation(),
	}).Debug("running search-index aggregation")
	db := s.client.Database(tenant)
	switch f := spec.(type) {
	case filters.JobRunFilter:
		return s.grouped(ctx, groupParams{
			coll:          db.Collection("job_runs"),
			match:         jobRunMatch(f, scope),
			acrossExpr:    domainGroupExpr(jobRunFields, f.Across(), f.CustomField(), "parameters"),
			durationField: "duration",
			calc:          f.Calculation(),
			stacks:        stacks,
			stackExpr: func(field string) interface{} {
				return domainGroupExpr(jobRunFields, field, "", "parameters")
			},
		})
	case filters.IssueFilter:
		switch f.Calculation() {
		case filters.CalcSprintMapping, filters.CalcSprintMappingCount:
			return s.sprintMappings(ctx, db, f)
		case filters.CalcStageTimes:
			return s.grouped(ctx, groupParams{
				coll:          db.Collection("issue_stage_times"),
				match:         stageTimeMatch(f, scope),
				acrossExpr:    "$stage",
				durationField: "duration_seconds",
				calc:          f.Calculation(),
			})
		}
		return s.grouped(ctx, groupParams{
			coll:          db.Collection("issues"),
			match:         issueMatch(f, scope),
			acrossExpr:    domainGroupExpr(issueFields, f.Across(), f.CustomField(), "custom_fields"),
			durationField: "solve_time",
			calc:          f.Calculation(),
			stacks:        stacks,
			stackExpr: func(field string) interface{} {
				return domainGroupExpr(issueFields, field, "", "custom_fields")
			},
		})
	case filters.CommitFilter:
		return s.grouped(ctx, groupParams{
			coll:       db.Collection("commits"),
			match:      commitMatch(f, scope),
			acrossExpr: domainGroupExpr(commitFields, f.Across(), "", ""),
			calc:       f.Calculation(),
		})
	case filters.TicketFilter:
		return s.grouped(ctx, groupParams{
			coll:          db.Collection("tickets"),
			match:         ticketMatch(f, scope),
			acrossExpr:    domainGroupExpr(ticketFields, f.Across(), "", ""),
			durationField: "solve_time",
			calc:          f.Calculation(),
		})
	}
	return nil, apperror.NewBadRequest(fmt.Sprintf("unsupported report domain %q", spec.Domain()))
}

// groupParams describes one $match/$group run.
type groupParams struct {
	coll          *mongo.Collection
	match         bson.M
	acrossExpr    interface{}
	durationField string
	calc          filters.Calculation
	stacks        []string
	stackExpr     func(field string) interface{}
}

// groupRow is the raw group stage output.
type groupRow struct {
	ID        interface{} `bson:"_id"`
	Count     int64       `bson:"count"`
	Durations []int64     `bson:"durations,omitempty"`
}

// grouped runs the aggregation, deriving time statistics in Go from pushed
// duration values so the store works on any server version. A requested
// stack dimension runs a second composite grouping whose buckets attach to
// the parents.
func (s *MongoSearchStore) grouped(ctx context.Context, p groupParams) ([]domain.AggregationRecord, error) {
	statistical := p.durationField != "" &&
		(p.calc == filters.CalcDuration || p.calc == filters.CalcStageTimes)

	rows, err := s.runGroup(ctx, p.coll, p.match, p.acrossExpr, p.durationField, statistical)
	if err != nil {
		return nil, err
	}
	records := make([]domain.AggregationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFrom(stringify(row.ID), row, statistical))
	}

	if len(p.stacks) == 0 || p.stackExpr == nil {
		return records, nil
	}
	composite := bson.D{
		{Key: "parent", Value: p.acrossExpr},
		{Key: "stack", Value: p.stackExpr(p.stacks[0])},
	}
	childRows, err := s.runGroup(ctx, p.coll, p.match, composite, p.durationField, statistical)
	if err != nil {
		return nil, err
	}
	byParent := map[string][]domain.AggregationRecord{}
	for _, row := range childRows {
		parent, stack := compositeKeys(row.ID)
		byParent[parent] = append(byParent[parent], recordFrom(stack, row, statistical))
	}
	for i := range records {
		records[i].Stacks = byParent[records[i].Key]
	}
	return records, nil
}

func (s *MongoSearchStore) runGroup(ctx context.Context, coll *mongo.Collection, match bson.M, idExpr interface{}, durationField string, statistical bool) ([]groupRow, error) {
	group := bson.D{
		{Key: "_id", Value: idExpr},
		{Key: "count", Value: bson.M{"$sum": 1}},
	}
	if statistical {
		group = append(group, bson.E{Key: "durations", Value: bson.M{"$push": "$" + durationField}})
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: group}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	var rows []groupRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s aggregation: %w", coll.Name(), err)
	}
	return rows, nil
}

// recordFrom converts a raw group row, computing order statistics from the
// collected durations.
func recordFrom(key string, row groupRow, statistical bool) domain.AggregationRecord {
	rec := domain.AggregationRecord{Key: key, Count: row.Count}
	if !statistical || len(row.Durations) == 0 {
		return rec
	}
	d := make([]int64, len(row.Durations))
	copy(d, row.Durations)
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })

	var sum int64
	for _, v := range d {
		sum += v
	}
	rec.Min = d[0]
	rec.Max = d[len(d)-1]
	rec.Mean = float64(sum) / float64(len(d))
	rec.Median = d[len(d)/2]
	rec.P90 = d[percentileIndex(len(d), 90)]
	rec.P95 = d[percentileIndex(len(d), 95)]
	return rec
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// stringify renders a group key: keys are strings in the index, but a
// missing field groups under null.
func stringify(id interface{}) string {
	if id == nil {
		return ""
	}
	if s, ok := id.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", id)
}

// compositeKeys unpacks a {parent, stack} group key.
func compositeKeys(id interface{}) (parent, stack string) {
	switch doc := id.(type) {
	case primitive.D:
		for _, e := range doc {
			switch e.Key {
			case "parent":
				parent = stringify(e.Value)
			case "stack":
				stack = stringify(e.Value)
			}
		}
	case primitive.M:
		parent = stringify(doc["parent"])
		stack = stringify(doc["stack"])
	}
	return parent, stack
}

// domainGroupExpr resolves the grouping expression for one domain: built-in
// dimensions map to document fields, custom-field dimensions read the
// attribute sub-document, across=none collapses into a single bucket.
func domainGroupExpr(fields map[string]string, across, customField, attrDoc string) interface{} {
	if across == "none" {
		return "none"
	}
	if across == filters.AcrossCustomField && customField != "" && attrDoc != "" {
		return "$" + attrDoc + "." + customField
	}
	if field, ok := fields[across]; ok {
		return "$" + field
	}
	return "$" + fields["trend"]
}

var jobRunFields = map[string]string{
	"job_name":                 "job_name",
	"job_normalized_full_name": "job_normalized_full_name",
	"job_status":               "job_status",
	"project_name":             "project",
	"instance_name":            "instance_name",
	"cicd_user_id":             "cicd_user_id",
	"triage_rule":              "triage_rule",
	"trend":                    "started_day",
}

var issueFields = map[string]string{
	"project":        "project",
	"status":         "status",
	"priority":       "priority",
	"issue_type":     "issue_type",
	"assignee":       "assignee",
	"reporter":       "reporter",
	"label":          "labels",
	"component":      "components",
	"epic":           "epic",
	"version":        "versions",
	"sprint":         "sprint_name",
	"velocity_stage": "velocity_stage",
	"trend":          "created_day",
}

var commitFields = map[string]string{
	"author":    "author",
	"committer": "committer",
	"repo_id":   "repo_id",
	"project":   "project",
	"branch":    "branch",
	"file_type": "file_types",
	"trend":     "committed_day",
}

var ticketFields = map[string]string{
	"status":    "status",
	"priority":  "priority",
	"type":      "type",
	"brand":     "brand",
	"assignee":  "assignee",
	"submitter": "submitter",
	"requester": "requester",
	"trend":     "created_day",
}

// matchBuilder accumulates $match conditions.
type matchBuilder struct {
	m bson.M
}

func newMatch() *matchBuilder {
	return &matchBuilder{m: bson.M{}}
}

func (b *matchBuilder) in(field string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b.merge(field, "$in", vals)
}

func (b *matchBuilder) notIn(field string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b.merge(field, "$nin", vals)
}

func (b *matchBuilder) rng(field string, r filters.Range) {
	if r.Start != nil {
		b.merge(field, "$gt", *r.Start)
	}
	if r.End != nil {
		b.merge(field, "$lt", *r.End)
	}
}

func (b *matchBuilder) match(field string, m filters.Match) {
	switch {
	case m.Contains != "":
		b.regex(field, regexp.QuoteMeta(m.Contains))
	case m.Begins != "":
		b.regex(field, "^"+regexp.QuoteMeta(m.Begins))
	case m.Ends != "":
		b.regex(field, regexp.QuoteMeta(m.Ends)+"$")
	}
}

func (b *matchBuilder) regex(field, pattern string) {
	b.m[field] = primitive.Regex{Pattern: pattern, Options: "i"}
}

func (b *matchBuilder) eq(field string, value interface{}) {
	b.m[field] = value
}

func (b *matchBuilder) scope(scope domain.ScopeConstraint, fields map[string]string) {
	for field, vals := range scope.Predicates {
		if doc, ok := fields[field]; ok {
			b.in(doc, vals)
		}
	}
}

// merge adds an operator under a field, composing with operators already
// present (an inclusion and a range can target the same field).
func (b *matchBuilder) merge(field, op string, value interface{}) {
	existing, ok := b.m[field].(bson.M)
	if !ok {
		if _, taken := b.m[field]; taken {
			return
		}
		existing = bson.M{}
	}
	existing[op] = value
	b.m[field] = existing
}

func jobRunMatch(f filters.JobRunFilter, scope domain.ScopeConstraint) bson.M {
	b := newMatch()
	b.in("job_name", f.JobNames)
	b.notIn("job_name", f.ExcludeJobNames)
	b.in("job_normalized_full_name", f.JobNormalizedFullNames)
	b.notIn("job_normalized_full_name", f.ExcludeJobNormalizedFullNames)
	b.in("job_status", f.JobStatuses)
	b.notIn("job_status", f.ExcludeJobStatuses)
	b.in("project", f.ProjectNames)
	b.notIn("project", f.ExcludeProjectNames)
	b.in("instance_name", f.InstanceNames)
	b.notIn("instance_name", f.ExcludeInstanceNames)
	b.in("cicd_user_id", f.CICDUserIDs)
	b.notIn("cicd_user_id", f.ExcludeCICDUserIDs)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("started_at", f.StartTimeRange)
	b.rng("ended_at", f.EndTimeRange)
	for param, value := range f.Parameters {
		b.eq("parameters."+param, value)
	}
	for field, m := range f.PartialMatches {
		if doc, ok := jobRunFields[field]; ok {
			b.match(doc, m)
		}
	}
	b.scope(scope, jobRunFields)
	return b.m
}

func issueMatch(f filters.IssueFilter, scope domain.ScopeConstraint) bson.M {
	b := newMatch()
	b.in("key", f.Keys)
	b.notIn("key", f.ExcludeKeys)
	b.in("project", f.Projects)
	b.notIn("project", f.ExcludeProjects)
	b.in("status", f.Statuses)
	b.notIn("status", f.ExcludeStatuses)
	b.in("priority", f.Priorities)
	b.notIn("priority", f.ExcludePriorities)
	b.in("issue_type", f.IssueTypes)
	b.notIn("issue_type", f.ExcludeIssueTypes)
	b.in("assignee", f.Assignees)
	b.notIn("assignee", f.ExcludeAssignees)
	b.in("reporter", f.Reporters)
	b.notIn("reporter", f.ExcludeReporters)
	b.in("labels", f.Labels)
	b.notIn("labels", f.ExcludeLabels)
	b.in("components", f.Components)
	b.notIn("components", f.ExcludeComponents)
	b.in("epic", f.Epics)
	b.notIn("epic", f.ExcludeEpics)
	b.in("versions", f.Versions)
	b.notIn("versions", f.ExcludeVersions)
	b.in("velocity_stage", f.VelocityStages)
	b.notIn("velocity_stage", f.ExcludeVelocityStages)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("issue_created_at", f.CreatedRange)
	b.rng("issue_updated_at", f.UpdatedRange)
	b.rng("issue_resolved_at", f.ResolvedRange)
	for field, value := range f.CustomFields {
		b.eq("custom_fields."+field, value)
	}
	for field, m := range f.PartialMatches {
		if doc, ok := issueFields[field]; ok {
			b.match(doc, m)
		}
	}
	b.scope(scope, issueFields)
	return b.m
}

func stageTimeMatch(f filters.IssueFilter, scope domain.ScopeConstraint) bson.M {
	b := newMatch()
	b.in("issue_key", f.Keys)
	b.in("project", f.Projects)
	b.notIn("project", f.ExcludeProjects)
	b.in("assignee", f.Assignees)
	b.notIn("assignee", f.ExcludeAssignees)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("issue_resolved_at", f.ResolvedRange)
	b.scope(scope, issueFields)
	return b.m
}

func commitMatch(f filters.CommitFilter, scope domain.ScopeConstraint) bson.M {
	b := newMatch()
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
	b.in("file_types", f.FileTypes)
	b.notIn("file_types", f.ExcludeFileTypes)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("committed_at", f.CommittedRange)
	for field, m := range f.PartialMatches {
		if doc, ok := commitFields[field]; ok {
			b.match(doc, m)
		}
	}
	b.scope(scope, commitFields)
	return b.m
}

func ticketMatch(f filters.TicketFilter, scope domain.ScopeConstraint) bson.M {
	b := newMatch()
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
		if doc, ok := ticketFields[field]; ok {
			b.match(doc, m)
		}
	}
	b.scope(scope, ticketFields)
	return b.m
}

// sprintMappingDoc is the indexed shape of one issue-sprint mapping.
type sprintMappingDoc struct {
	SprintID       string             `bson:"sprint_id"`
	SprintName     string             `bson:"sprint_name"`
	SprintGoal     string             `bson:"sprint_goal"`
	State          string             `bson:"state"`
	StartedAt      int64              `bson:"started_at"`
	CompletedAt    int64              `bson:"completed_at"`
	PlannedEndedAt int64              `bson:"planned_ended_at"`
	Issue          sprintIssueDoc     `bson:"issue"`
}

type sprintIssueDoc struct {
	Key                  string  `bson:"key"`
	Type                 string  `bson:"type"`
	Status               string  `bson:"status"`
	StoryPointsPlanned   float64 `bson:"story_points_planned"`
	StoryPointsDelivered float64 `bson:"story_points_delivered"`
	AddedAt              int64   `bson:"added_at"`
	Planned              bool    `bson:"planned"`
	Delivered            bool    `bson:"delivered"`
	OutsideOfSprint      bool    `bson:"outside_of_sprint"`
}

// sprintMappings returns one record per issue-sprint mapping, most recently
// completed sprints first.
func (s *MongoSearchStore) sprintMappings(ctx context.Context, db *mongo.Database, f filters.IssueFilter) ([]domain.AggregationRecord, error) {
	sm := f.SprintMapping
	b := newMatch()
	if sm.SprintState != "" {
		b.eq("state", sm.SprintState)
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
		b.eq("ignorable_issue_type", *sm.IgnorableIssueType)
	}
	b.in("integration_id", f.IntegrationIDs())

	opts := options.Find().SetSort(bson.D{
		{Key: "completed_at", Value: -1},
		{Key: "sprint_id", Value: 1},
		{Key: "issue.key", Value: 1},
	})
	cur, err := db.Collection("sprint_mappings").Find(ctx, b.m, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint mappings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []sprintMappingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sprint mappings: %w", err)
	}

	records := make([]domain.AggregationRecord, 0, len(docs))
	for _, doc := range docs {
		mapping := domain.SprintMappingRecord{
			SprintID:       doc.SprintID,
			SprintName:     doc.SprintName,
			SprintGoal:     doc.SprintGoal,
			StartedAt:      doc.StartedAt,
			CompletedAt:    doc.CompletedAt,
			PlannedEndedAt: doc.PlannedEndedAt,
			Issue: domain.SprintIssue{
				Key:                  doc.Issue.Key,
				Type:                 doc.Issue.Type,
				Status:               doc.Issue.Status,
				StoryPointsPlanned:   doc.Issue.StoryPointsPlanned,
				StoryPointsDelivered: doc.Issue.StoryPointsDelivered,
				AddedAt:              doc.Issue.AddedAt,
				Planned:              doc.Issue.Planned,
				Delivered:            doc.Issue.Delivered,
				OutsideOfSprint:      doc.Issue.OutsideOfSprint,
			},
		}
		records = append(records, domain.AggregationRecord{
			Key:           mapping.SprintID,
			AdditionalKey: mapping.SprintName,
			Count:         1,
			SprintMapping: &mapping,
		})
	}
	return records, nil
}
