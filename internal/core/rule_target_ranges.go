package core

import (
	"context"
	"fmt"

	"crisprcatalog/pkg/domain"
)

const (
	ruleTargetInterval = "target_interval"
	ruleGCContentRange = "gc_content_range"
	ruleStrandSymbol   = "strand_symbol"
)

// NewTargetIntervalRule warns when a target ends before it starts.
func NewTargetIntervalRule() domain.Rule {
	return targetRule{name: ruleTargetInterval, check: func(t domain.TargetSite) string {
		if t.EndPos < t.StartPos {
			return fmt.Sprintf("end_pos %d precedes start_pos %d", t.EndPos, t.StartPos)
		}
		return ""
	}, field: "end_pos"}
}

// NewGCContentRangeRule warns when gc_content is not a percentage.
func NewGCContentRangeRule() domain.Rule {
	return targetRule{name: ruleGCContentRange, check: func(t domain.TargetSite) string {
		if t.GCContent < 0 || t.GCContent > 100 {
			return fmt.Sprintf("gc_content %g outside [0, 100]", t.GCContent)
		}
		return ""
	}, field: "gc_content"}
}

// NewStrandSymbolRule warns when the strand is neither "+" nor "-". Blank
// strands are reported by the required fields rule instead.
func NewStrandSymbolRule() domain.Rule {
	return targetRule{name: ruleStrandSymbol, check: func(t domain.TargetSite) string {
		if blank(t.Strand) || t.Strand == domain.StrandForward || t.Strand == domain.StrandReverse {
			return ""
		}
		return fmt.Sprintf("strand %q is not %q or %q", t.Strand, domain.StrandForward, domain.StrandReverse)
	}, field: "strand"}
}

// targetRule applies check to every target and reports a warning per finding.
type targetRule struct {
	name  string
	field string
	check func(domain.TargetSite) string
}

func (r targetRule) Name() string { return r.name }

func (r targetRule) Evaluate(_ context.Context, p domain.Pathogen) (domain.Result, error) {
	res := domain.Result{}
	for i, t := range p.Targets {
		msg := r.check(t)
		if msg == "" {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.name,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("target %d: %s", i, msg),
			Entity:   domain.EntityTargetSite,
			Field:    fmt.Sprintf("targets[%d].%s", i, r.field),
		})
	}
	return res, nil
}
