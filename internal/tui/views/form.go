// Package views provides the step forms of the terminal survey.
package views

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drivesound/drivesound/internal/tui"
)

// FieldKind selects how a field is edited.
type FieldKind int

const (
	FieldChoice FieldKind = iota // exactly one of Options
	FieldMulti                   // up to Max of Options
	FieldCheck                   // a single tick box
	FieldText                    // free text
)

// Field is one input of a step form. ID is the answer's JSON field name;
// nested fields use a dotted path such as "sd_scores.volume".
type Field struct {
	ID      string
	Label   string
	Kind    FieldKind
	Options []string
	// Labels are shown instead of Options when set.
	Labels []string
	Max    int
	// Encoding of the value in the answer: "int", "bool" (yes/no choice)
	// or string by default.
	Encoding string

	cursor   int
	selected []bool
	checked  bool
	input    textinput.Model
}

// Choice returns a single-choice field with option def preselected.
func Choice(id, label string, options []string, def int) *Field {
	return &Field{ID: id, Label: label, Kind: FieldChoice, Options: options, cursor: def}
}

// Multi returns a multiple-choice field allowing at most limit picks.
func Multi(id, label string, options []string, limit int) *Field {
	return &Field{ID: id, Label: label, Kind: FieldMulti, Options: options, Max: limit, selected: make([]bool, len(options))}
}

// Check returns a tick box.
func Check(id, label string) *Field {
	return &Field{ID: id, Label: label, Kind: FieldCheck}
}

// Text returns a free-text field.
func Text(id, label, placeholder string, limit int) *Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 60
	return &Field{ID: id, Label: label, Kind: FieldText, input: ti}
}

// WithLabels sets display labels for the options.
func (f *Field) WithLabels(labels []string) *Field {
	f.Labels = labels
	return f
}

// AsInt encodes the value as an integer.
func (f *Field) AsInt() *Field {
	f.Encoding = "int"
	return f
}

// AsBool encodes a yes/no choice as a boolean.
func (f *Field) AsBool() *Field {
	f.Encoding = "bool"
	return f
}

func (f *Field) label(i int) string {
	if i < len(f.Labels) {
		return f.Labels[i]
	}
	return f.Options[i]
}

// Value returns the choice or text value of the field.
func (f *Field) Value() string {
	switch f.Kind {
	case FieldChoice:
		if f.cursor >= 0 && f.cursor < len(f.Options) {
			return f.Options[f.cursor]
		}
	case FieldText:
		return strings.TrimSpace(f.input.Value())
	case FieldCheck:
		return strconv.FormatBool(f.checked)
	}
	return ""
}

// Values returns the picked options of a multi field, in option order.
func (f *Field) Values() []string {
	out := []string{}
	for i, on := range f.selected {
		if on {
			out = append(out, f.Options[i])
		}
	}
	return out
}

// Checked reports whether a check field is ticked.
func (f *Field) Checked() bool { return f.checked }

// Set replaces the field's value. Choice fields take one option, multi
// fields any number, check fields "true" or "false".
func (f *Field) Set(values ...string) error {
	switch f.Kind {
	case FieldChoice:
		if len(values) != 1 {
			return fmt.Errorf("field %s takes one value", f.ID)
		}
		i := slices.Index(f.Options, values[0])
		if i < 0 {
			return fmt.Errorf("field %s: unknown option %q", f.ID, values[0])
		}
		f.cursor = i
	case FieldMulti:
		if len(values) > f.Max {
			return fmt.Errorf("field %s: at most %d picks", f.ID, f.Max)
		}
		picked := make([]bool, len(f.Options))
		for _, v := range values {
			i := slices.Index(f.Options, v)
			if i < 0 {
				return fmt.Errorf("field %s: unknown option %q", f.ID, v)
			}
			picked[i] = true
		}
		f.selected = picked
	case FieldCheck:
		if len(values) != 1 {
			return fmt.Errorf("field %s takes one value", f.ID)
		}
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return fmt.Errorf("field %s: %w", f.ID, err)
		}
		f.checked = b
	case FieldText:
		f.input.SetValue(strings.Join(values, " "))
	}
	return nil
}

func (f *Field) picks() int {
	n := 0
	for _, on := range f.selected {
		if on {
			n++
		}
	}
	return n
}

// update applies msg to the field. Text fields hand every message to
// their input.
func (f *Field) update(msg tea.Msg, keys tui.KeyMap) tea.Cmd {
	if f.Kind == FieldText {
		var cmd tea.Cmd
		f.input, cmd = f.input.Update(msg)
		return cmd
	}
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(km, keys.Left):
		if f.cursor > 0 {
			f.cursor--
		}
	case key.Matches(km, keys.Right):
		if f.cursor < len(f.Options)-1 {
			f.cursor++
		}
	case key.Matches(km, keys.Toggle):
		switch f.Kind {
		case FieldCheck:
			f.checked = !f.checked
		case FieldMulti:
			if f.selected[f.cursor] || f.picks() < f.Max {
				f.selected[f.cursor] = !f.selected[f.cursor]
			}
		}
	}
	return nil
}

func (f *Field) view(focused bool) string {
	var b strings.Builder
	label := f.Label
	if f.Kind == FieldMulti {
		label += fmt.Sprintf(" (up to %d)", f.Max)
	}
	if focused {
		b.WriteString(tui.MarkCursor + " " + tui.SelectedStyle.Render(label))
	} else {
		b.WriteString("  " + tui.NormalStyle.Render(label))
	}
	b.WriteString("\n    ")

	switch f.Kind {
	case FieldCheck:
		mark := tui.MarkUnchecked
		if f.checked {
			mark = tui.MarkChecked
		}
		b.WriteString(mark)
	case FieldText:
		b.WriteString(f.input.View())
	case FieldChoice, FieldMulti:
		parts := make([]string, len(f.Options))
		for i := range f.Options {
			text := f.label(i)
			if f.Kind == FieldMulti {
				mark := tui.MarkUnchecked
				if f.selected[i] {
					mark = tui.MarkChecked
				}
				text = mark + " " + text
			}
			switch {
			case i == f.cursor && focused:
				parts[i] = tui.SelectedStyle.Render("[" + text + "]")
			case i == f.cursor && f.Kind == FieldChoice:
				parts[i] = tui.SuccessStyle.Render(text)
			default:
				parts[i] = tui.DimStyle.Render(text)
			}
		}
		b.WriteString(strings.Join(parts, "  "))
	}
	return b.String()
}

// Form is the ordered set of fields of one step. One field has focus.
type Form struct {
	Fields []*Field
	focus  int
	keys   tui.KeyMap
}

// NewForm builds a form with the first field focused.
func NewForm(fields ...*Field) *Form {
	return &Form{Fields: fields, keys: tui.DefaultKeyMap}
}

// Field returns the field with the given id, or nil.
func (f *Form) Field(id string) *Field {
	for _, fld := range f.Fields {
		if fld.ID == id {
			return fld
		}
	}
	return nil
}

// Set is shorthand for Field(id).Set.
func (f *Form) Set(id string, values ...string) error {
	fld := f.Field(id)
	if fld == nil {
		return fmt.Errorf("no field %s", id)
	}
	return fld.Set(values...)
}

// Focused returns the focused field, or nil for an empty form.
func (f *Form) Focused() *Field {
	if len(f.Fields) == 0 {
		return nil
	}
	return f.Fields[f.focus]
}

// Focus focuses the current field's text input, if any.
func (f *Form) Focus() tea.Cmd {
	fld := f.Focused()
	if fld == nil || fld.Kind != FieldText {
		return nil
	}
	return fld.input.Focus()
}

func (f *Form) move(delta int) tea.Cmd {
	if len(f.Fields) == 0 {
		return nil
	}
	if fld := f.Focused(); fld.Kind == FieldText {
		fld.input.Blur()
	}
	f.focus = (f.focus + delta + len(f.Fields)) % len(f.Fields)
	return f.Focus()
}

// Next moves focus to the next field, wrapping around.
func (f *Form) Next() tea.Cmd { return f.move(1) }

// Prev moves focus to the previous field, wrapping around.
func (f *Form) Prev() tea.Cmd { return f.move(-1) }

// Update routes a message to the focused field.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	fld := f.Focused()
	if fld == nil {
		return nil
	}
	return fld.update(msg, f.keys)
}

// View renders all fields.
func (f *Form) View() string {
	parts := make([]string, len(f.Fields))
	for i, fld := range f.Fields {
		parts[i] = fld.view(i == f.focus)
	}
	return strings.Join(parts, "\n\n")
}
