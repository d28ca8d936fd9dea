package core

import (
	"context"
	"fmt"
	"strings"

	"crisprcatalog/pkg/domain"
)

const ruleRequiredFields = "required_fields"

// NewRequiredFieldsRule rejects pathogens missing any mandatory field,
// including an empty target list.
func NewRequiredFieldsRule() domain.Rule {
	return requiredFieldsRule{}
}

type requiredFieldsRule struct{}

func (requiredFieldsRule) Name() string { return ruleRequiredFields }

func (requiredFieldsRule) Evaluate(_ context.Context, p domain.Pathogen) (domain.Result, error) {
	res := domain.Result{}
	missing := func(entity domain.EntityType, field string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     ruleRequiredFields,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("missing field %s", field),
			Entity:   entity,
			Field:    field,
		})
	}

	if blank(p.Name) {
		missing(domain.EntityPathogen, "name")
	}
	if blank(p.Strain) {
		missing(domain.EntityPathogen, "strain")
	}
	if blank(p.CasSystem.Type) {
		missing(domain.EntityPathogen, "cas_system.type")
	}
	if blank(p.CasSystem.Description) {
		missing(domain.EntityPathogen, "cas_system.description")
	}
	if len(p.Targets) == 0 {
		missing(domain.EntityPathogen, "targets")
	}
	for i, t := range p.Targets {
		if blank(t.Sequence) {
			missing(domain.EntityTargetSite, fmt.Sprintf("targets[%d].sequence", i))
		}
		if blank(t.PAM) {
			missing(domain.EntityTargetSite, fmt.Sprintf("targets[%d].pam", i))
		}
		if blank(t.Strand) {
			missing(domain.EntityTargetSite, fmt.Sprintf("targets[%d].strand", i))
		}
	}
	return res, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
