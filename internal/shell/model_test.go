package shell

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"crisprcatalog/pkg/domain"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCatalog struct {
	mu        sync.Mutex
	pathogens []domain.Pathogen
	listErr   error
	searchErr error
	createErr error
	warnings  []string
	created   []domain.Pathogen
	searched  []string
}

func (f *fakeCatalog) List(context.Context) ([]domain.Pathogen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Pathogen(nil), f.pathogens...), nil
}

func (f *fakeCatalog) Search(_ context.Context, term string) ([]domain.Pathogen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, term)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []domain.Pathogen
	for _, p := range f.pathogens {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Create(_ context.Context, p domain.Pathogen) (domain.Pathogen, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Pathogen{}, nil, f.createErr
	}
	p.ID = "new"
	f.created = append(f.created, p)
	f.pathogens = append(f.pathogens, p)
	return p, f.warnings, nil
}

func seeded() *fakeCatalog {
	return &fakeCatalog{pathogens: []domain.Pathogen{
		{ID: "1", Name: "Escherichia coli", Strain: "K-12", CasSystem: domain.CasSystem{Type: "Type I-E", Description: "Cascade"},
			Targets: []domain.TargetSite{{Sequence: "ATCG", PAM: "NGG", StartPos: 10, EndPos: 14, Strand: "+", GCContent: 50}}},
		{ID: "2", Name: "Staphylococcus aureus", Strain: "USA300", CasSystem: domain.CasSystem{Type: "Type II-A", Description: "Cas9"}},
	}}
}

// drain runs cmd and any batched children, returning the produced messages.
// Spinner ticks are returned too; callers pick the messages they need.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model, cmd
}

// settle feeds every loadedMsg and createdMsg produced by cmd back into m.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range drain(cmd) {
		switch msg.(type) {
		case loadedMsg, createdMsg:
			var next tea.Cmd
			m, next = step(t, m, msg)
			m = settle(t, m, next)
		}
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func started(t *testing.T, cat Catalog) Model {
	t.Helper()
	m := New(cat, Options{MarkdownStyle: "notty"})
	if m.state != stateLoading {
		t.Fatalf("expected loading on mount, got %s", m.state)
	}
	return settle(t, m, m.Init())
}

func TestMountLoadsCatalog(t *testing.T) {
	m := started(t, seeded())
	if m.state != stateReady {
		t.Fatalf("expected ready, got %s", m.state)
	}
	if len(m.pathogens) != 2 {
		t.Fatalf("expected 2 pathogens, got %d", len(m.pathogens))
	}
	view := m.View()
	for _, want := range []string{"Escherichia coli", "Staphylococcus aureus", "1 target(s)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMountFailureShowsBanner(t *testing.T) {
	m := started(t, &fakeCatalog{listErr: errors.New("connection refused")})
	if m.state != stateError {
		t.Fatalf("expected error, got %s", m.state)
	}
	view := m.View()
	if !strings.Contains(view, loadFailedMessage) || !strings.Contains(view, "connection refused") {
		t.Fatalf("expected error banner, got:\n%s", view)
	}
}

func TestEmptyCatalogHint(t *testing.T) {
	m := started(t, &fakeCatalog{})
	if !strings.Contains(m.View(), "No pathogens found.") {
		t.Fatalf("expected empty hint, got:\n%s", m.View())
	}
}

func TestSearchSubmit(t *testing.T) {
	cat := seeded()
	m := started(t, cat)

	m, _ = step(t, m, key("/"))
	if !m.searchActive {
		t.Fatal("expected search input to be focused")
	}
	m = typeText(t, m, "aureus")
	m, cmd := step(t, m, key("enter"))
	if m.state != stateLoading {
		t.Fatalf("expected loading after search submit, got %s", m.state)
	}
	m = settle(t, m, cmd)

	if m.state != stateReady || len(m.pathogens) != 1 || m.pathogens[0].Name != "Staphylococcus aureus" {
		t.Fatalf("unexpected search state %s %+v", m.state, m.pathogens)
	}
	if len(cat.searched) != 1 || cat.searched[0] != "aureus" {
		t.Fatalf("unexpected search calls %v", cat.searched)
	}
	if !strings.Contains(m.View(), `1 result(s) for "aureus"`) {
		t.Fatalf("expected result count in view:\n%s", m.View())
	}
}

func TestSearchFailureKeepsStaleList(t *testing.T) {
	cat := seeded()
	m := started(t, cat)
	cat.searchErr = errors.New("boom")

	m, _ = step(t, m, key("/"))
	m = typeText(t, m, "coli")
	m, cmd := step(t, m, key("enter"))
	m = settle(t, m, cmd)

	if m.state != stateError || m.errMsg != searchFailedMessage {
		t.Fatalf("expected search failure, got %s %q", m.state, m.errMsg)
	}
	if len(m.pathogens) != 2 {
		t.Fatalf("expected stale list to remain, got %d", len(m.pathogens))
	}
}

func TestSupersededLoadIsDropped(t *testing.T) {
	cat := seeded()
	m := started(t, cat)

	m, _ = step(t, m, key("/"))
	m = typeText(t, m, "coli")
	m, first := step(t, m, key("enter"))

	m, _ = step(t, m, key("/"))
	m.search.SetValue("")
	m = typeText(t, m, "aureus")
	m, second := step(t, m, key("enter"))

	// The newer answer arrives first; the older one must not overwrite it.
	m = settle(t, m, second)
	m = settle(t, m, first)

	if len(m.pathogens) != 1 || m.pathogens[0].Name != "Staphylococcus aureus" {
		t.Fatalf("stale response overwrote newer one: %+v", m.pathogens)
	}
}

func fillForm(t *testing.T, m Model, values ...string) Model {
	t.Helper()
	for i, v := range values {
		if i > 0 {
			m, _ = step(t, m, key("tab"))
		}
		if v != "" {
			m = typeText(t, m, v)
		}
	}
	return m
}

func TestAddPathogenSuccessReloads(t *testing.T) {
	cat := seeded()
	cat.warnings = []string{"target 0: gc_content 150 outside [0, 100]"}
	m := started(t, cat)

	m, _ = step(t, m, key("a"))
	if !m.showAddForm {
		t.Fatal("expected add form")
	}
	// Numeric target inputs start at "0"; typed digits are appended.
	m = fillForm(t, m, "Klebsiella pneumoniae", "ATCC 700721", "Type I-E", "Cascade",
		"GATTACA", "NGG", "5", "5", "", "15")

	m, cmd := step(t, m, key("ctrl+s"))
	if !m.submitting {
		t.Fatal("expected submitting")
	}
	m = settle(t, m, cmd)

	if m.showAddForm {
		t.Fatal("form should close after success")
	}
	if m.state != stateReady || len(m.pathogens) != 3 {
		t.Fatalf("expected reload with 3 pathogens, got %s %d", m.state, len(m.pathogens))
	}
	if len(cat.created) != 1 {
		t.Fatalf("expected one create, got %d", len(cat.created))
	}
	got := cat.created[0]
	if got.Name != "Klebsiella pneumoniae" || len(got.Targets) != 1 {
		t.Fatalf("unexpected submitted pathogen %+v", got)
	}
	target := got.Targets[0]
	if target.StartPos != 5 || target.EndPos != 5 || target.Strand != "+" || target.GCContent != 15 {
		t.Fatalf("unexpected target %+v", target)
	}
	if !strings.Contains(m.View(), "gc_content 150") {
		t.Fatalf("expected warning notice in view:\n%s", m.View())
	}
}

func TestAddPathogenFailureKeepsForm(t *testing.T) {
	cat := seeded()
	cat.createErr = errors.New("catalog api: 400: missing field strain")
	m := started(t, cat)

	m, _ = step(t, m, key("a"))
	m = fillForm(t, m, "Vibrio cholerae")
	m, cmd := step(t, m, key("ctrl+s"))
	m = settle(t, m, cmd)

	if !m.showAddForm {
		t.Fatal("form must stay open after failure")
	}
	if m.alert != addFailedMessage {
		t.Fatalf("expected alert, got %q", m.alert)
	}
	if !strings.Contains(m.View(), "missing field strain") {
		t.Fatalf("expected failure detail in view:\n%s", m.View())
	}
	if len(m.pathogens) != 2 {
		t.Fatalf("no optimistic insert expected, got %d", len(m.pathogens))
	}

	// Any key dismisses the alert; entered data is intact.
	m, _ = step(t, m, key("x"))
	if m.alert != "" {
		t.Fatal("alert should be dismissed")
	}
	if got := m.form.value(fieldName); got != "Vibrio cholerae" {
		t.Fatalf("form data lost, name = %q", got)
	}
}

func TestFormRejectsNonNumericPositions(t *testing.T) {
	cat := seeded()
	m := started(t, cat)
	m, _ = step(t, m, key("a"))
	m = fillForm(t, m, "X", "Y", "Z", "W", "ATCG", "NGG", "abc")

	m, cmd := step(t, m, key("ctrl+s"))
	if cmd != nil || m.submitting {
		t.Fatal("invalid numbers must not be submitted")
	}
	if !strings.Contains(m.form.err, "start position") {
		t.Fatalf("unexpected form error %q", m.form.err)
	}
	if len(cat.created) != 0 {
		t.Fatal("nothing should be created")
	}
}

func TestFormTargets(t *testing.T) {
	m := started(t, seeded())
	m, _ = step(t, m, key("a"))
	if m.form.targets() != 1 {
		t.Fatalf("expected one target, got %d", m.form.targets())
	}
	m, _ = step(t, m, key("ctrl+n"))
	if m.form.targets() != 2 {
		t.Fatalf("expected two targets, got %d", m.form.targets())
	}
	if targetAt(m.form.focus) != 1 {
		t.Fatalf("focus should move to the new target, at %d", targetAt(m.form.focus))
	}
	if !strings.Contains(m.View(), "Target #2") {
		t.Fatalf("expected second target in view")
	}
	m, _ = step(t, m, key("ctrl+x"))
	if m.form.targets() != 1 {
		t.Fatalf("expected one target after removal, got %d", m.form.targets())
	}
	m, _ = step(t, m, key("ctrl+x"))
	if m.form.targets() != 1 {
		t.Fatal("last target must not be removed")
	}

	m, _ = step(t, m, key("esc"))
	if m.showAddForm {
		t.Fatal("esc should close the form")
	}
}

func TestDetailRendersTargets(t *testing.T) {
	m := started(t, seeded())
	m, _ = step(t, m, key("enter"))
	if !m.showDetail {
		t.Fatal("expected detail view")
	}
	view := m.View()
	for _, want := range []string{"K-12", "ATCG", "50.0"} {
		if !strings.Contains(view, want) {
			t.Fatalf("detail missing %q:\n%s", want, view)
		}
	}

	m, _ = step(t, m, key("down"))
	if m.selected != 1 {
		t.Fatalf("expected selection to move, got %d", m.selected)
	}
	if !strings.Contains(m.View(), "No target sites") {
		t.Fatalf("expected empty target note:\n%s", m.View())
	}
}

func TestDetailMarkdown(t *testing.T) {
	md := detailMarkdown(seeded().pathogens[0])
	for _, want := range []string{"## Escherichia coli", "**Strain:** K-12", "| 1 | `ATCG` | NGG | 10 | 14 | + | 50.0 |"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestQuitKeys(t *testing.T) {
	m := started(t, seeded())
	if _, cmd := step(t, m, key("q")); cmd == nil {
		t.Fatal("q should quit")
	}
	if _, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
}

func TestAPIFailuresAreLogged(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	cat := seeded()
	cat.createErr = errors.New("catalog api: 500: disk full")
	m := New(cat, Options{MarkdownStyle: "notty", Logger: zap.New(obs)})
	m = settle(t, m, m.Init())

	m, _ = step(t, m, key("a"))
	m = fillForm(t, m, "Vibrio cholerae")
	m, cmd := step(t, m, key("ctrl+s"))
	m = settle(t, m, cmd)

	m, _ = step(t, m, key("x"))
	m, _ = step(t, m, key("esc"))
	cat.listErr = errors.New("connection refused")
	m, cmd = step(t, m, key("r"))
	_ = settle(t, m, cmd)

	if got := logs.FilterMessage("create failed").All(); len(got) != 1 || !strings.Contains(got[0].ContextMap()["error"].(string), "disk full") {
		t.Fatalf("expected create failure log, got %v", got)
	}
	if got := logs.FilterMessage("load failed").All(); len(got) != 1 || got[0].ContextMap()["search"] != false {
		t.Fatalf("expected load failure log, got %v", got)
	}
	if logs.FilterMessage("pathogen created").Len() != 0 {
		t.Fatal("failed create logged as success")
	}
}
