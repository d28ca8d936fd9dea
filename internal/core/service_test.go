package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crisprcatalog/pkg/domain"

	"github.com/google/go-cmp/cmp"
)

func TestListPathogensOrdersByNameAndTargetsByStart(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, saureus())
	mustCreate(t, svc, ecoli())

	got, err := svc.ListPathogens(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"Escherichia coli", "Staphylococcus aureus"}, names(got)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	starts := []int{}
	for _, target := range got[0].Targets {
		starts = append(starts, target.StartPos)
	}
	if diff := cmp.Diff([]int{10, 1200}, starts); diff != "" {
		t.Fatalf("targets not ordered by start_pos (-want +got):\n%s", diff)
	}
}

func TestListPathogensEmptyStoreReturnsEmptySlice(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.ListPathogens(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSearchPathogensBlankTermMatchesList(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, ecoli())
	mustCreate(t, svc, saureus())

	all, err := svc.ListPathogens(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, term := range []string{"", "   ", "\t\n"} {
		got, err := svc.SearchPathogens(context.Background(), term)
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if diff := cmp.Diff(all, got); diff != "" {
			t.Fatalf("blank search %q differs from list (-list +search):\n%s", term, diff)
		}
	}
}

func TestSearchPathogensCaseInsensitiveSubstring(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, ecoli())
	mustCreate(t, svc, saureus())

	cases := map[string][]string{
		"coli":     {"Escherichia coli"},
		"AUREUS":   {"Staphylococcus aureus"},
		"cOcC":     {"Staphylococcus aureus"},
		"s":        {"Escherichia coli", "Staphylococcus aureus"},
		"listeria": {},
	}
	for term, want := range cases {
		got, err := svc.SearchPathogens(context.Background(), term)
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if diff := cmp.Diff(want, names(got)); diff != "" {
			t.Fatalf("search %q (-want +got):\n%s", term, diff)
		}
	}
}

func TestSearchPathogensMatchesWildcardsLiterally(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, ecoli())
	odd := saureus()
	odd.Name = "Strain_50%"
	mustCreate(t, svc, odd)

	for _, term := range []string{"%", "_", "_50%"} {
		got, err := svc.SearchPathogens(context.Background(), term)
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if diff := cmp.Diff([]string{"Strain_50%"}, names(got)); diff != "" {
			t.Fatalf("search %q (-want +got):\n%s", term, diff)
		}
	}
}

func TestCreatePathogenRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Pathogen)
		field  string
	}{
		{"name", func(p *domain.Pathogen) { p.Name = "" }, "name"},
		{"blank strain", func(p *domain.Pathogen) { p.Strain = "  " }, "strain"},
		{"cas type", func(p *domain.Pathogen) { p.CasSystem.Type = "" }, "cas_system.type"},
		{"cas system", func(p *domain.Pathogen) { p.CasSystem = domain.CasSystem{} }, "cas_system.description"},
		{"targets", func(p *domain.Pathogen) { p.Targets = nil }, "targets"},
		{"target pam", func(p *domain.Pathogen) { p.Targets[1].PAM = "" }, "targets[1].pam"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(t)
			candidate := ecoli()
			tc.mutate(&candidate)

			_, res, err := svc.CreatePathogen(context.Background(), candidate)
			var verr domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, f := range verr.Fields() {
				if f == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %s in %v", tc.field, verr.Fields())
			}
			if !res.HasBlocking() {
				t.Fatalf("expected blocking result, got %+v", res)
			}
			if p, targets := store.Counts(); p != 0 || targets != 0 {
				t.Fatalf("expected no rows, got %d pathogens %d targets", p, targets)
			}
		})
	}
}

func TestCreatePathogenPersistsParentAndChildren(t *testing.T) {
	svc, store := newTestService(t)
	candidate := ecoli()
	candidate.ID = "client-chosen"
	bogus := fixedNow.AddDate(-10, 0, 0)
	candidate.CreatedAt = &bogus

	created, res, err := svc.CreatePathogen(context.Background(), candidate)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected clean result, got %+v", res.Violations)
	}
	if created.ID != "p-001" || !created.Persisted() {
		t.Fatalf("expected store-assigned identity, got %+v", created)
	}
	if !created.CreatedAt.Equal(fixedNow) || !created.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected store timestamps, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}
	if p, targets := store.Counts(); p != 1 || targets != len(candidate.Targets) {
		t.Fatalf("expected 1 pathogen and %d targets, got %d and %d", len(candidate.Targets), p, targets)
	}
	if diff := cmp.Diff(candidate.Targets, created.Targets); diff != "" {
		t.Fatalf("create should return targets in insertion order (-want +got):\n%s", diff)
	}
}

func TestCreatePathogenGCContentRoundTrips(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, ecoli())

	got, err := svc.SearchPathogens(context.Background(), "escherichia")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Targets[0].GCContent != 50.0 {
		t.Fatalf("expected gc_content 50.0 on first target, got %+v", got)
	}
}

func TestCreatePathogenRollsBackWhenChildInsertFails(t *testing.T) {
	mem := newMemoryStore()
	defer func() { _ = mem.Close() }()
	store := &faultyStore{Store: mem, insertTargetsErr: errors.New(`insert or update on table "target_sites" violates foreign key constraint`)}
	audit := &captureAuditRecorder{}
	svc := NewService(store, WithAuditRecorder(audit))

	_, _, err := svc.CreatePathogen(context.Background(), ecoli())
	var serr domain.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "violates foreign key constraint") {
		t.Fatalf("expected verbatim store message, got %q", err.Error())
	}
	if p, targets := mem.Counts(); p != 0 || targets != 0 {
		t.Fatalf("expected no orphaned rows, got %d pathogens %d targets", p, targets)
	}
	if !audit.has(opCreatePathogen, AuditStatusError, nil) {
		t.Fatalf("expected audit error entry")
	}
}

func TestCreatePathogenAcceptsOutOfRangeValuesWithWarnings(t *testing.T) {
	logger := &recordingLogger{}
	svc, store := newTestService(t, WithLogger(logger))
	candidate := saureus()
	candidate.Targets[0].EndPos = candidate.Targets[0].StartPos - 1
	candidate.Targets[0].GCContent = 140
	candidate.Targets[0].Strand = "x"

	created, res, err := svc.CreatePathogen(context.Background(), candidate)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected persisted pathogen")
	}
	warnings := res.Filter(domain.SeverityWarn)
	rules := make([]string, 0, len(warnings))
	for _, v := range warnings {
		rules = append(rules, v.Rule)
	}
	if diff := cmp.Diff([]string{ruleTargetInterval, ruleGCContentRange, ruleStrandSymbol}, rules); diff != "" {
		t.Fatalf("unexpected warnings (-want +got):\n%s", diff)
	}
	if logger.count("warn") != 3 {
		t.Fatalf("expected three warn logs, got %d", logger.count("warn"))
	}
	if p, _ := store.Counts(); p != 1 {
		t.Fatalf("expected pathogen row, got %d", p)
	}
}

func TestListPathogensFailsWholeCallOnChildFetchError(t *testing.T) {
	mem := newMemoryStore()
	defer func() { _ = mem.Close() }()
	seed := NewService(mem)
	mustCreate(t, seed, ecoli())
	mustCreate(t, seed, saureus())

	logger := &recordingLogger{}
	svc := NewService(&faultyStore{Store: mem, selectTargetsErr: errors.New("relation \"target_sites\" does not exist")},
		WithLogger(logger), WithFetchConcurrency(1))
	got, err := svc.ListPathogens(context.Background())
	if got != nil {
		t.Fatalf("expected no partial result, got %+v", got)
	}
	var serr domain.StoreError
	if !errors.As(err, &serr) || err.Error() != `relation "target_sites" does not exist` {
		t.Fatalf("expected verbatim StoreError, got %v", err)
	}
	if logger.count("error") != 1 {
		t.Fatalf("expected one error log, got %d", logger.count("error"))
	}
}

func TestSearchPathogensWrapsSelectFailure(t *testing.T) {
	svc := NewService(&faultyStore{Store: newMemoryStore(), selectPathogensErr: errors.New("connection refused")})
	_, err := svc.SearchPathogens(context.Background(), "coli")
	var serr domain.StoreError
	if !errors.As(err, &serr) || serr.Op != "select pathogens" {
		t.Fatalf("expected StoreError from select, got %v", err)
	}
}

func TestToTargetRejectsMalformedGCContent(t *testing.T) {
	_, err := toTarget(domain.TargetRow{ID: "t-1", GCContent: "fifty"})
	var serr domain.StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	site, err := toTarget(domain.TargetRow{GCContent: " 50.00 ", StartPos: 3, EndPos: 7, Strand: "+"})
	if err != nil || site.GCContent != 50 {
		t.Fatalf("expected 50, got %v %v", site.GCContent, err)
	}
}

func TestFromTargetsFormatsGCContentAsText(t *testing.T) {
	rows := fromTargets([]domain.TargetSite{{GCContent: 50}, {GCContent: 42.5}})
	if diff := cmp.Diff([]string{"50", "42.5"}, []string{rows[0].GCContent, rows[1].GCContent}); diff != "" {
		t.Fatalf("unexpected gc text (-want +got):\n%s", diff)
	}
}
