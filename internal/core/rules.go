package core

import "crisprcatalog/pkg/domain"

type (
	Rule        = domain.Rule
	RulesEngine = domain.RulesEngine
	Result      = domain.Result
	Violation   = domain.Violation
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set:
// required fields block a create, range findings only warn.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewRequiredFieldsRule())
	engine.Register(NewTargetIntervalRule())
	engine.Register(NewGCContentRangeRule())
	engine.Register(NewStrandSymbolRule())
	return engine
}
