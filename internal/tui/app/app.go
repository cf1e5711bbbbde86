// Package app provides the terminal survey application: it renders the
// current step of a flow controller and turns key presses into transitions.
package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/tui"
	"github.com/drivesound/drivesound/internal/tui/views"
)

// maxWidth is the maximum width of the survey box.
const maxWidth = 100

// App is the survey TUI model. It owns the controller for the duration of
// the program; Forward runs as a command and input is ignored until its
// result arrives. Only Update touches the controller, and never while busy.
type App struct {
	ctl   *flow.Controller
	audio []string
	keys  tui.KeyMap

	spec flow.StepSpec
	form *views.Form
	// progress is copied from the controller in load; View must not read
	// the controller while a Forward command is running.
	progress float64
	bar  progress.Model
	help help.Model

	status    string
	statusErr bool
	busy      bool
	width     int
	height    int
}

// New creates an App positioned at the controller's current step.
func New(ctl *flow.Controller, audioOptions []string) *App {
	a := &App{
		ctl:   ctl,
		audio: audioOptions,
		keys:  tui.DefaultKeyMap,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:  help.New(),
		width: maxWidth,
	}
	a.load()
	return a
}

// Init focuses the first field.
func (a *App) Init() tea.Cmd {
	return a.form.Focus()
}

// Spec returns the step currently shown.
func (a *App) Spec() flow.StepSpec { return a.spec }

// Form returns the form currently shown.
func (a *App) Form() *views.Form { return a.form }

// Status returns the message shown under the form.
func (a *App) Status() string { return a.status }

// Update handles messages and updates the survey state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.bar.Width = min(40, max(10, msg.Width-20))
		return a, nil

	case tui.StepResultMsg:
		a.busy = false
		return a, a.handleResult(msg)

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		if a.busy {
			return a, nil
		}
		switch {
		case key.Matches(msg, a.keys.Submit):
			return a, a.submit()
		case key.Matches(msg, a.keys.Back):
			return a, a.back()
		case key.Matches(msg, a.keys.Next):
			return a, a.form.Next()
		case key.Matches(msg, a.keys.Prev):
			return a, a.form.Prev()
		}
	}
	return a, a.form.Update(msg)
}

func (a *App) submit() tea.Cmd {
	if a.ctl.Session().Completed() {
		if a.ctl.Persisted() {
			return tea.Quit
		}
		return a.forward(nil)
	}
	answer, err := views.Assemble(a.spec, a.form)
	if err != nil {
		a.setError(err)
		return nil
	}
	return a.forward(answer)
}

func (a *App) forward(answer any) tea.Cmd {
	a.busy = true
	a.status = ""
	ctl := a.ctl
	return func() tea.Msg {
		out, err := ctl.Forward(answer)
		return tui.StepResultMsg{Outcome: out, Err: err}
	}
}

func (a *App) handleResult(msg tui.StepResultMsg) tea.Cmd {
	switch {
	case errors.Is(msg.Err, flow.ErrPersistenceFailure):
		cmd := a.load()
		a.status = "Your responses could not be saved. Press Enter to try again."
		a.statusErr = true
		return cmd
	case msg.Err != nil:
		// The step is unchanged; keep what was typed.
		a.setError(msg.Err)
		return nil
	case msg.Outcome.Retry != nil:
		a.status = fmt.Sprintf("That was not the sound in the test audio. Listen again and choose once more (attempt %d).", msg.Outcome.Attempts)
		a.statusErr = true
		return nil
	}
	return a.load()
}

func (a *App) back() tea.Cmd {
	if _, err := a.ctl.Back(); err != nil {
		if errors.Is(err, flow.ErrInvalidTransition) {
			a.status = "This is the first question."
			a.statusErr = false
			return nil
		}
		a.setError(err)
		return nil
	}
	return a.load()
}

// load rebuilds the form for the controller's current step.
func (a *App) load() tea.Cmd {
	spec, err := a.ctl.CurrentStep()
	if err != nil {
		a.setError(err)
		a.form = views.NewForm()
		return nil
	}
	a.spec = spec
	a.progress = a.ctl.Progress()
	a.form = views.StepForm(spec, a.ctl.Session().StimulusOrder(), a.audio)
	views.Prefill(a.form, spec, a.ctl.Session().Responses())
	a.status = ""
	a.statusErr = false
	return a.form.Focus()
}

func (a *App) setError(err error) {
	msg := err.Error()
	if errors.Is(err, answers.ErrInvalidAnswer) {
		msg = strings.TrimPrefix(msg, answers.ErrInvalidAnswer.Error()+": ")
	}
	a.status = msg
	a.statusErr = true
}

// View renders the current step.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("EV Driving Sound Survey"))
	b.WriteString("\n")
	phase := fmt.Sprintf("%d/%d %s", a.spec.Phase, flow.NumPhases, views.PhaseName(a.spec.Phase))
	b.WriteString(tui.StatusBarStyle.Render(phase))
	b.WriteString("  ")
	b.WriteString(a.bar.ViewAs(a.progress / 100))
	b.WriteString("\n\n")

	b.WriteString(tui.QuestionStyle.Render(views.Title(a.spec)))
	b.WriteString("\n")
	if p := views.Prompt(a.spec); p != "" {
		b.WriteString(tui.DimStyle.Render(p))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if form := a.form.View(); form != "" {
		b.WriteString(form)
		b.WriteString("\n\n")
	}

	switch {
	case a.busy:
		b.WriteString(tui.DimStyle.Render("Saving…"))
		b.WriteString("\n")
	case a.status != "" && a.statusErr:
		b.WriteString(tui.ErrorStyle.Render(a.status))
		b.WriteString("\n")
	case a.status != "":
		b.WriteString(tui.WarningStyle.Render(a.status))
		b.WriteString("\n")
	}

	b.WriteString(a.help.View(a.keys))

	boxWidth := maxWidth
	if a.width-4 < boxWidth {
		boxWidth = a.width - 4
	}
	return tui.BoxStyle.Width(boxWidth).Render(b.String())
}
