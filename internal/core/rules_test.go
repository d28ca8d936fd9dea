package core

import (
	"context"
	"errors"
	"testing"

	"crisprcatalog/pkg/domain"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultRulesEngineRegistersBuiltins(t *testing.T) {
	want := []string{ruleRequiredFields, ruleTargetInterval, ruleGCContentRange, ruleStrandSymbol}
	if diff := cmp.Diff(want, NewDefaultRulesEngine().Rules()); diff != "" {
		t.Fatalf("unexpected rules (-want +got):\n%s", diff)
	}
}

func TestRequiredFieldsRuleReportsEveryGap(t *testing.T) {
	res, err := NewRequiredFieldsRule().Evaluate(context.Background(), domain.Pathogen{
		Targets: []domain.TargetSite{{Sequence: "ATCG"}},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	verr := domain.ValidationError{Violations: res.Violations}
	want := []string{"name", "strain", "cas_system.type", "cas_system.description", "targets[0].pam", "targets[0].strand"}
	if diff := cmp.Diff(want, verr.Fields()); diff != "" {
		t.Fatalf("unexpected fields (-want +got):\n%s", diff)
	}
	if verr.Error() != "missing field name; missing field strain; missing field cas_system.type; missing field cas_system.description; missing field targets[0].pam; missing field targets[0].strand" {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestRangeRulesOnlyWarn(t *testing.T) {
	p := ecoli()
	p.Targets[0].GCContent = -1
	p.Targets[1].EndPos = 0
	p.Targets[1].Strand = ""

	var combined domain.Result
	for _, rule := range []domain.Rule{NewTargetIntervalRule(), NewGCContentRangeRule(), NewStrandSymbolRule()} {
		res, err := rule.Evaluate(context.Background(), p)
		if err != nil {
			t.Fatalf("%s: %v", rule.Name(), err)
		}
		combined.Merge(res)
	}
	if combined.HasBlocking() {
		t.Fatalf("range rules must not block: %+v", combined)
	}
	var fields []string
	for _, v := range combined.Violations {
		fields = append(fields, v.Field)
	}
	if diff := cmp.Diff([]string{"targets[1].end_pos", "targets[0].gc_content"}, fields); diff != "" {
		t.Fatalf("unexpected findings (-want +got):\n%s", diff)
	}
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, domain.Pathogen) (domain.Result, error) {
	return domain.Result{}, errors.New("rule backend unavailable")
}

func TestCreatePathogenSurfacesRuleErrors(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	svc, store := newTestService(t, WithRulesEngine(engine))
	_, _, err := svc.CreatePathogen(context.Background(), ecoli())
	if err == nil || err.Error() != "evaluate rules: rule backend unavailable" {
		t.Fatalf("expected rule error, got %v", err)
	}
	if p, _ := store.Counts(); p != 0 {
		t.Fatalf("expected nothing persisted")
	}
}
