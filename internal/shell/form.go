package shell

import (
	"fmt"
	"strconv"
	"strings"

	"crisprcatalog/pkg/domain"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldName = iota
	fieldStrain
	fieldCasType
	fieldCasDescription
	headerFields
)

const (
	targetSequence = iota
	targetPAM
	targetStart
	targetEnd
	targetStrand
	targetGC
	targetFields
)

var (
	headerLabels       = [headerFields]string{"Pathogen name", "Strain", "Cas system type", "Cas description"}
	headerPlaceholders = [headerFields]string{"e.g. Escherichia coli", "e.g. K-12 MG1655", "e.g. Cas9", "Description"}
	targetLabels       = [targetFields]string{"Sequence", "PAM", "Start position", "End position", "Strand (+/-)", "GC content %"}
	targetDefaults     = [targetFields]string{"", "", "0", "0", domain.StrandForward, "0"}
	targetPlaceholders = [targetFields]string{"ATCGATCG...", "NGG", "", "", "", ""}
)

// addForm collects a new pathogen. Header inputs come first, followed by
// targetFields inputs per target site.
type addForm struct {
	inputs []textinput.Model
	focus  int
	err    string
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	ti.Width = 48
	ti.SetValue(value)
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func newAddForm() addForm {
	f := addForm{}
	for i := 0; i < headerFields; i++ {
		f.inputs = append(f.inputs, newInput(headerPlaceholders[i], ""))
	}
	f.appendTarget()
	f.inputs[0].Focus()
	return f
}

func (f *addForm) targets() int {
	return (len(f.inputs) - headerFields) / targetFields
}

func (f *addForm) appendTarget() {
	for j := 0; j < targetFields; j++ {
		f.inputs = append(f.inputs, newInput(targetPlaceholders[j], targetDefaults[j]))
	}
}

// targetAt returns the target index of input i, or -1 for header inputs.
func targetAt(i int) int {
	if i < headerFields {
		return -1
	}
	return (i - headerFields) / targetFields
}

func (f *addForm) setFocus(i int) {
	n := len(f.inputs)
	i = ((i % n) + n) % n
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[f.focus].Focus()
}

// addTarget appends a blank target and focuses its first input.
func (f *addForm) addTarget() {
	f.appendTarget()
	f.setFocus(len(f.inputs) - targetFields)
}

// removeTarget drops the focused target. The last remaining target stays.
func (f *addForm) removeTarget() bool {
	idx := targetAt(f.focus)
	if idx < 0 || f.targets() <= 1 {
		return false
	}
	start := headerFields + idx*targetFields
	f.inputs[f.focus].Blur()
	f.inputs = append(f.inputs[:start], f.inputs[start+targetFields:]...)
	if start >= len(f.inputs) {
		start = len(f.inputs) - targetFields
	}
	f.focus = start
	f.inputs[f.focus].Focus()
	return true
}

func (f *addForm) onLastInput() bool { return f.focus == len(f.inputs)-1 }

func (f *addForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *addForm) value(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }

// pathogen builds the candidate record. Only numeric parsing is checked
// here; required fields are enforced by the API.
func (f *addForm) pathogen() (domain.Pathogen, error) {
	p := domain.Pathogen{
		Name:   f.value(fieldName),
		Strain: f.value(fieldStrain),
		CasSystem: domain.CasSystem{
			Type:        f.value(fieldCasType),
			Description: f.value(fieldCasDescription),
		},
		Targets: make([]domain.TargetSite, 0, f.targets()),
	}
	for t := 0; t < f.targets(); t++ {
		base := headerFields + t*targetFields
		start, err := strconv.Atoi(f.value(base + targetStart))
		if err != nil {
			return domain.Pathogen{}, fmt.Errorf("target #%d: start position must be an integer", t+1)
		}
		end, err := strconv.Atoi(f.value(base + targetEnd))
		if err != nil {
			return domain.Pathogen{}, fmt.Errorf("target #%d: end position must be an integer", t+1)
		}
		gc, err := strconv.ParseFloat(f.value(base+targetGC), 64)
		if err != nil {
			return domain.Pathogen{}, fmt.Errorf("target #%d: GC content must be a number", t+1)
		}
		p.Targets = append(p.Targets, domain.TargetSite{
			Sequence:  f.value(base + targetSequence),
			PAM:       f.value(base + targetPAM),
			StartPos:  start,
			EndPos:    end,
			Strand:    f.value(base + targetStrand),
			GCContent: gc,
		})
	}
	return p, nil
}

func (f *addForm) view(s Styles) string {
	var b strings.Builder
	b.WriteString(s.Title.Render("Add New Pathogen"))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		var label string
		if i < headerFields {
			label = headerLabels[i]
		} else {
			j := (i - headerFields) % targetFields
			if j == 0 {
				fmt.Fprintf(&b, "\n%s\n", s.Subtitle.Render(fmt.Sprintf("Target #%d", targetAt(i)+1)))
			}
			label = targetLabels[j]
		}
		style := s.Label
		if i == f.focus {
			style = s.Focused
		}
		b.WriteString(style.Render(label))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(s.Notice.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString(s.Help.Render("tab/shift+tab move • ctrl+n add target • ctrl+x remove target • ctrl+s submit • esc cancel"))
	return s.Form.Render(b.String())
}
