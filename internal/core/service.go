// Package core implements the catalog's data access layer: listing,
// searching and creating pathogens on top of an injected relational store.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crisprcatalog/pkg/domain"
)

const (
	opListPathogens   = "list_pathogens"
	opSearchPathogens = "search_pathogens"
	opCreatePathogen  = "create_pathogen"

	defaultFetchConcurrency = 4
)

// Service exposes the catalog operations. It holds no mutable state of its
// own; the store is the only shared resource.
type Service struct {
	store      domain.Store
	engine     *RulesEngine
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	audit      AuditRecorder
	clock      ClockFunc
	fetchLimit int
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.Store, opts ...ServiceOption) *Service {
	svc := &Service{
		store:      store,
		engine:     NewDefaultRulesEngine(),
		logger:     noopLogger{},
		metrics:    noopMetrics{},
		tracer:     noopTracer{},
		audit:      noopAudit{},
		clock:      func() time.Time { return time.Now().UTC() },
		fetchLimit: defaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.Store {
	return s.store
}

// Rules returns the active rules engine.
func (s *Service) Rules() *RulesEngine {
	return s.engine
}

// ListPathogens returns every pathogen ordered by name, each with its target
// sites ordered by start position.
func (s *Service) ListPathogens(ctx context.Context) ([]domain.Pathogen, error) {
	var out []domain.Pathogen
	err := s.run(ctx, opListPathogens, func(ctx context.Context) error {
		var err error
		out, err = s.load(ctx, domain.PathogenFilter{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchPathogens returns the pathogens whose name contains term, ignoring
// case. The term is matched literally. A blank term behaves like ListPathogens.
func (s *Service) SearchPathogens(ctx context.Context, term string) ([]domain.Pathogen, error) {
	if strings.TrimSpace(term) == "" {
		return s.ListPathogens(ctx)
	}
	var out []domain.Pathogen
	err := s.run(ctx, opSearchPathogens, func(ctx context.Context) error {
		var err error
		out, err = s.load(ctx, domain.PathogenFilter{NameContains: term})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePathogen validates candidate and persists it together with its
// target sites in a single transaction. Client-supplied identity fields are
// ignored. The returned Result carries non-blocking rule findings; blocking
// findings are returned as a domain.ValidationError and nothing is written.
func (s *Service) CreatePathogen(ctx context.Context, candidate domain.Pathogen) (domain.Pathogen, domain.Result, error) {
	started := s.clock()
	draft := candidate.Draft()
	var (
		created domain.Pathogen
		res     domain.Result
	)
	err := s.run(ctx, opCreatePathogen, func(ctx context.Context) error {
		var err error
		res, err = s.engine.Evaluate(ctx, draft)
		if err != nil {
			return fmt.Errorf("evaluate rules: %w", err)
		}
		if res.HasBlocking() {
			return domain.ValidationError{Violations: res.Filter(domain.SeverityBlock)}
		}
		for _, v := range res.Violations {
			s.logger.Warn("pathogen accepted with rule finding", "rule", v.Rule, "field", v.Field, "message", v.Message)
		}
		created, err = s.insert(ctx, draft)
		return err
	})

	entry := AuditEntry{
		Operation:  opCreatePathogen,
		Status:     AuditStatusSuccess,
		Entity:     string(domain.EntityPathogen),
		EntityID:   created.ID,
		Warnings:   len(res.Filter(domain.SeverityWarn)),
		RecordedAt: s.clock(),
	}
	entry.Duration = entry.RecordedAt.Sub(started)
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)

	if err != nil {
		return domain.Pathogen{}, res, err
	}
	return created, res, nil
}

func (s *Service) insert(ctx context.Context, draft domain.Pathogen) (domain.Pathogen, error) {
	var created domain.Pathogen
	err := s.store.RunInTransaction(ctx, func(tx domain.StoreTx) error {
		parent, err := tx.InsertPathogen(ctx, fromPathogen(draft))
		if err != nil {
			return err
		}
		children, err := tx.InsertTargets(ctx, parent.ID, fromTargets(draft.Targets))
		if err != nil {
			return err
		}
		created, err = toPathogen(parent, children)
		return err
	})
	if err != nil {
		return domain.Pathogen{}, wrapStoreError("insert pathogen", err)
	}
	return created, nil
}

// run wraps fn with tracing, metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	started := s.clock()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	elapsed := s.clock().Sub(started)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	var validation domain.ValidationError
	switch {
	case err == nil:
		s.logger.Debug("catalog operation completed", "operation", op, "duration", elapsed)
	case errors.As(err, &validation):
		s.logger.Info("catalog operation rejected", "operation", op, "fields", validation.Fields())
	default:
		s.logger.Error("catalog operation failed", "operation", op, "error", err)
	}
	return err
}

// wrapStoreError classifies err as a StoreError unless it already carries a
// catalog error type.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		storeErr      domain.StoreError
		validationErr domain.ValidationError
	)
	if errors.As(err, &storeErr) || errors.As(err, &validationErr) {
		return err
	}
	return domain.StoreError{Op: op, Err: err}
}
