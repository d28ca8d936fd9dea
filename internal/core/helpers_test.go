package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"crisprcatalog/internal/infra/persistence/memory"
	"crisprcatalog/pkg/domain"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newMemoryStore() *memory.Store {
	seq := 0
	return memory.NewStore(
		memory.WithClock(func() time.Time { return fixedNow }),
		memory.WithIDGenerator(func() string { seq++; return fmt.Sprintf("p-%03d", seq) }),
	)
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	store := newMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, opts...), store
}

func ecoli() domain.Pathogen {
	return domain.Pathogen{
		Name:      "Escherichia coli",
		Strain:    "K-12",
		CasSystem: domain.CasSystem{Type: "Cas9", Description: "SpCas9 nuclease"},
		Targets: []domain.TargetSite{
			{Sequence: "GATCGGAAGAGCACACGTCT", PAM: "NGG", StartPos: 1200, EndPos: 1220, Strand: "+", GCContent: 55},
			{Sequence: "ATCG", PAM: "NGG", StartPos: 10, EndPos: 14, Strand: "-", GCContent: 50},
		},
	}
}

func saureus() domain.Pathogen {
	return domain.Pathogen{
		Name:      "Staphylococcus aureus",
		Strain:    "USA300",
		CasSystem: domain.CasSystem{Type: "Cas12a", Description: "AsCas12a nuclease"},
		Targets: []domain.TargetSite{
			{Sequence: "TTTACCGGTAAGCT", PAM: "TTTV", StartPos: 340, EndPos: 354, Strand: "+", GCContent: 42.5},
		},
	}
}

func mustCreate(t *testing.T, svc *Service, p domain.Pathogen) domain.Pathogen {
	t.Helper()
	created, _, err := svc.CreatePathogen(context.Background(), p)
	if err != nil {
		t.Fatalf("create %s: %v", p.Name, err)
	}
	return created
}

func names(ps []domain.Pathogen) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	domain.Store
	selectPathogensErr error
	selectTargetsErr   error
	insertTargetsErr   error
}

func (f *faultyStore) SelectPathogens(ctx context.Context, filter domain.PathogenFilter) ([]domain.PathogenRow, error) {
	if f.selectPathogensErr != nil {
		return nil, f.selectPathogensErr
	}
	return f.Store.SelectPathogens(ctx, filter)
}

func (f *faultyStore) SelectTargets(ctx context.Context, pathogenID string) ([]domain.TargetRow, error) {
	if f.selectTargetsErr != nil {
		return nil, f.selectTargetsErr
	}
	return f.Store.SelectTargets(ctx, pathogenID)
}

func (f *faultyStore) RunInTransaction(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	return f.Store.RunInTransaction(ctx, func(tx domain.StoreTx) error {
		return fn(faultyTx{StoreTx: tx, insertTargetsErr: f.insertTargetsErr})
	})
}

type faultyTx struct {
	domain.StoreTx
	insertTargetsErr error
}

func (f faultyTx) InsertTargets(ctx context.Context, pathogenID string, rows []domain.TargetRow) ([]domain.TargetRow, error) {
	if f.insertTargetsErr != nil {
		return nil, f.insertTargetsErr
	}
	return f.StoreTx.InsertTargets(ctx, pathogenID, rows)
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}
