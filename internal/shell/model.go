// Package shell is the terminal front end for the catalog. It drives the
// HTTP API and renders whatever the API returns; nothing is predicted
// locally.
package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crisprcatalog/pkg/domain"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

const (
	loadFailedMessage   = "Failed to load pathogens. Please try again."
	searchFailedMessage = "Search failed. Please try again."
	addFailedMessage    = "Failed to add pathogen. Please try again."

	defaultRequestTimeout = 15 * time.Second
	defaultWidth          = 100
)

// Catalog is the API surface the shell drives. *client.Client satisfies it.
type Catalog interface {
	List(ctx context.Context) ([]domain.Pathogen, error)
	Search(ctx context.Context, term string) ([]domain.Pathogen, error)
	Create(ctx context.Context, p domain.Pathogen) (domain.Pathogen, []string, error)
}

type state int

const (
	stateLoading state = iota
	stateReady
	stateError
)

func (s state) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case stateReady:
		return "ready"
	case stateError:
		return "error"
	default:
		return "unknown"
	}
}

// Options tunes the shell.
type Options struct {
	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration
	// MarkdownStyle is a glamour standard style name ("dark", "light", "notty").
	MarkdownStyle string
	Styles        *Styles
	// Logger records API failures. It must not write to the terminal the
	// shell draws on; nil discards.
	Logger *zap.Logger
}

// loadedMsg answers a list or search request. seq identifies the request
// so that answers to superseded loads can be dropped.
type loadedMsg struct {
	seq       int
	search    bool
	pathogens []domain.Pathogen
	err       error
}

type createdMsg struct {
	pathogen domain.Pathogen
	warnings []string
	err      error
}

// Model is the bubbletea model of the shell.
type Model struct {
	catalog Catalog
	timeout time.Duration
	styles  Styles
	mdStyle string
	logger  *zap.Logger

	state     state
	pathogens []domain.Pathogen
	errMsg    string
	errDetail string
	seq       int

	search       textinput.Model
	searchActive bool
	query        string

	showAddForm bool
	form        addForm
	submitting  bool
	alert       string
	alertDetail string
	notice      string

	selected   int
	showDetail bool

	spinner spinner.Model
	width   int
}

// New builds the model in the loading state; Init issues the first load.
func New(catalog Catalog, opts Options) Model {
	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	mdStyle := opts.MarkdownStyle
	if mdStyle == "" {
		mdStyle = "dark"
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "pathogen name (press / to search)"
	search.CharLimit = 256
	search.Width = 48
	search.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		catalog: catalog,
		timeout: timeout,
		styles:  styles,
		mdStyle: mdStyle,
		logger:  logger,
		state:   stateLoading,
		seq:     1,
		search:  search,
		spinner: sp,
		width:   defaultWidth,
	}
}

// Init starts the spinner and the initial list load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(m.seq, "", false))
}

func (m Model) fetch(seq int, term string, search bool) tea.Cmd {
	catalog, timeout := m.catalog, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var (
			pathogens []domain.Pathogen
			err       error
		)
		if search {
			pathogens, err = catalog.Search(ctx, term)
		} else {
			pathogens, err = catalog.List(ctx)
		}
		return loadedMsg{seq: seq, search: search, pathogens: pathogens, err: err}
	}
}

func (m Model) create(p domain.Pathogen) tea.Cmd {
	catalog, timeout := m.catalog, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		created, warnings, err := catalog.Create(ctx, p)
		return createdMsg{pathogen: created, warnings: warnings, err: err}
	}
}

// startLoad moves to loading and issues a new sequenced request.
func (m Model) startLoad(term string, search bool) (Model, tea.Cmd) {
	m.seq++
	m.state = stateLoading
	m.errMsg, m.errDetail = "", ""
	m.showDetail = false
	return m, tea.Batch(m.spinner.Tick, m.fetch(m.seq, term, search))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.state != stateLoading && !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		if msg.seq != m.seq {
			m.logger.Debug("stale load dropped", zap.Int("seq", msg.seq), zap.Int("current", m.seq))
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("load failed", zap.Bool("search", msg.search), zap.Error(msg.err))
			m.state = stateError
			m.errMsg = loadFailedMessage
			if msg.search {
				m.errMsg = searchFailedMessage
			}
			m.errDetail = msg.err.Error()
			return m, nil
		}
		m.state = stateReady
		m.pathogens = msg.pathogens
		if m.selected >= len(m.pathogens) {
			m.selected = max(len(m.pathogens)-1, 0)
		}
		return m, nil

	case createdMsg:
		m.submitting = false
		if msg.err != nil {
			m.logger.Warn("create failed", zap.Error(msg.err))
			m.alert = addFailedMessage
			m.alertDetail = msg.err.Error()
			return m, nil
		}
		m.logger.Info("pathogen created",
			zap.String("id", msg.pathogen.ID),
			zap.String("name", msg.pathogen.Name),
			zap.Strings("warnings", msg.warnings),
		)
		m.showAddForm = false
		m.form = addForm{}
		m.notice = fmt.Sprintf("Added %s.", msg.pathogen.Name)
		if len(msg.warnings) > 0 {
			m.notice += " Warnings: " + strings.Join(msg.warnings, "; ")
		}
		m.search.SetValue("")
		m.query = ""
		return m.startLoad("", false)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.alert != "" {
			m.alert, m.alertDetail = "", ""
			return m, nil
		}
		switch {
		case m.showAddForm:
			return m.updateForm(msg)
		case m.searchActive:
			return m.updateSearch(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searchActive = true
		m.notice = ""
		cmd := m.search.Focus()
		return m, cmd
	case "a":
		m.showAddForm = true
		m.showDetail = false
		m.notice = ""
		m.form = newAddForm()
		return m, nil
	case "r":
		m.search.SetValue("")
		m.query = ""
		m.notice = ""
		return m.startLoad("", false)
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.pathogens)-1 {
			m.selected++
		}
	case "enter":
		if len(m.pathogens) > 0 {
			m.showDetail = !m.showDetail
		}
	case "esc":
		m.showDetail = false
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchActive = false
		m.search.Blur()
		return m, nil
	case "enter":
		m.searchActive = false
		m.search.Blur()
		m.query = m.search.Value()
		m.selected = 0
		return m.startLoad(m.query, true)
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.showAddForm = false
		m.form = addForm{}
		return m, nil
	case "tab", "down":
		m.form.setFocus(m.form.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.form.setFocus(m.form.focus - 1)
		return m, nil
	case "ctrl+n":
		m.form.addTarget()
		return m, nil
	case "ctrl+x":
		m.form.removeTarget()
		return m, nil
	case "enter":
		if !m.form.onLastInput() {
			m.form.setFocus(m.form.focus + 1)
			return m, nil
		}
		return m.submit()
	case "ctrl+s":
		return m.submit()
	}
	cmd := m.form.update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	p, err := m.form.pathogen()
	if err != nil {
		m.form.err = err.Error()
		return m, nil
	}
	m.form.err = ""
	m.submitting = true
	return m, tea.Batch(m.spinner.Tick, m.create(p))
}

// View implements tea.Model.
func (m Model) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("CRISPR/Cas Target Database"))
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("CRISPR/Cas9 target sites for common bacterial pathogens."))
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	if m.alert != "" {
		b.WriteString(s.Alert.Render(m.alert + "\n" + m.alertDetail + "\n\npress any key"))
		b.WriteString("\n\n")
	}
	if m.showAddForm {
		b.WriteString(m.form.view(s))
		b.WriteString("\n")
		if m.submitting {
			b.WriteString(m.spinner.View() + " Saving pathogen...\n")
		}
		return b.String()
	}
	if m.notice != "" {
		b.WriteString(s.Success.Render(m.notice))
		b.WriteString("\n\n")
	}
	if m.state == stateError {
		b.WriteString(s.Banner.Render(m.errMsg + "\n" + s.Muted.Render(m.errDetail)))
		b.WriteString("\n\n")
	}

	switch {
	case m.state == stateLoading:
		b.WriteString(m.spinner.View() + " Loading pathogens...\n")
	case len(m.pathogens) == 0:
		b.WriteString(s.Muted.Render("No pathogens found."))
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("Try adjusting your search or add a new pathogen."))
		b.WriteString("\n")
	default:
		m.writeList(&b)
	}

	b.WriteString(s.Help.Render("/ search • a add pathogen • r reload • ↑/↓ select • enter details • q quit"))
	return b.String()
}

func (m Model) writeList(b *strings.Builder) {
	s := m.styles
	if m.query != "" {
		fmt.Fprintf(b, "%s\n", s.Muted.Render(fmt.Sprintf("%d result(s) for %q", len(m.pathogens), m.query)))
	}
	for i, p := range m.pathogens {
		line := fmt.Sprintf("%s (%s) · %s · %d target(s)", p.Name, p.Strain, p.CasSystem.Type, len(p.Targets))
		if i == m.selected {
			b.WriteString(s.Selected.Render("› " + line))
		} else {
			b.WriteString(s.Item.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if m.showDetail && m.selected < len(m.pathogens) {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(m.pathogens[m.selected]))
	}
}

func (m Model) renderDetail(p domain.Pathogen) string {
	md := detailMarkdown(p)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.mdStyle),
		glamour.WithWordWrap(max(m.width-4, 40)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// detailMarkdown describes one pathogen and its target sites.
func detailMarkdown(p domain.Pathogen) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", p.Name)
	fmt.Fprintf(&b, "**Strain:** %s\n\n", p.Strain)
	fmt.Fprintf(&b, "**Cas system:** %s: %s\n\n", p.CasSystem.Type, p.CasSystem.Description)
	if len(p.Targets) == 0 {
		b.WriteString("_No target sites._\n")
		return b.String()
	}
	b.WriteString("| # | Sequence | PAM | Start | End | Strand | GC % |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for i, t := range p.Targets {
		fmt.Fprintf(&b, "| %d | `%s` | %s | %d | %d | %s | %.1f |\n",
			i+1, t.Sequence, t.PAM, t.StartPos, t.EndPos, t.Strand, t.GCContent)
	}
	return b.String()
}

// Run starts the shell on the terminal and blocks until it exits or ctx is
// cancelled.
func Run(ctx context.Context, catalog Catalog, opts Options) error {
	p := tea.NewProgram(New(catalog, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
