package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/repowizard/repowizard/pkg/config"
	wizerr "github.com/repowizard/repowizard/pkg/errors"
	"github.com/repowizard/repowizard/pkg/runlog"
	"github.com/repowizard/repowizard/pkg/setup"
	"github.com/repowizard/repowizard/pkg/source"
)

// wizardCommand creates the interactive setup wizard.
func (c *CLI) wizardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactively set up a repository",
		Long:  `Walk through source selection, target directory, and options in an interactive form, then watch the setup run with live log output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.loadConfig("")
			model := newWizardModel(c, cfg)
			p := tea.NewProgram(model, tea.WithContext(cmd.Context()))
			final, err := p.Run()
			if err != nil {
				return err
			}
			if m, ok := final.(wizardModel); ok && m.runErr != nil {
				return m.runErr
			}
			return nil
		},
	}
}

// wizardStep identifies the current form page.
type wizardStep int

const (
	stepKind wizardStep = iota
	stepSource
	stepTarget
	stepOptions
	stepConfirm
	stepRunning
	stepDone
)

// Messages delivered to the wizard's update loop.
type (
	logEntryMsg  runlog.Entry
	logClosedMsg struct{}
	frameMsg     time.Time
	runDoneMsg   struct {
		result *setup.Result
		err    error
	}
)

const maxVisibleLogLines = 12

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// wizardModel is the bubbletea model for the setup wizard. The form steps
// mutate only the model; the run step spawns one worker goroutine and
// observes it through messages.
type wizardModel struct {
	cli *CLI

	step       wizardStep
	kindCursor int
	input      string
	fieldErr   string

	// collected answers
	srcKind source.Kind
	srcVal  string
	target  string
	install bool
	nested  bool

	// run state
	runner     *setup.Runner
	cleanup    func()
	cancelRun  context.CancelFunc
	entries    <-chan runlog.Entry
	logLines   []string
	frame      int
	cancelling bool
	result     *setup.Result
	runErr     error
}

func newWizardModel(c *CLI, cfg config.Config) wizardModel {
	target := cfg.TargetDir
	if target == "" {
		if cwd, err := os.Getwd(); err == nil {
			target = cwd
		}
	}
	install := true
	if cfg.AutoInstall != nil {
		install = *cfg.AutoInstall
	}
	nested := false
	if cfg.NestedManifests != nil {
		nested = *cfg.NestedManifests
	}
	return wizardModel{
		cli:     c,
		step:    stepKind,
		target:  target,
		install: install,
		nested:  nested,
	}
}

func (m wizardModel) Init() tea.Cmd {
	return nil
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)
	case logEntryMsg:
		m.logLines = append(m.logLines, runlog.Entry(msg).Message)
		if len(m.logLines) > maxVisibleLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxVisibleLogLines:]
		}
		return m, waitForEntry(m.entries)
	case logClosedMsg:
		return m, nil
	case frameMsg:
		if m.step == stepRunning {
			m.frame++
			return m, tickFrame()
		}
		return m, nil
	case runDoneMsg:
		m.result = msg.result
		m.runErr = msg.err
		m.step = stepDone
		if m.cleanup != nil {
			m.cleanup()
			m.cleanup = nil
		}
		return m, nil
	}
	return m, nil
}

func (m wizardModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global quit, except while a run is active (cooperative cancel there).
	if key == "ctrl+c" && m.step != stepRunning {
		return m, tea.Quit
	}

	switch m.step {
	case stepKind:
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.kindCursor > 0 {
				m.kindCursor--
			}
		case "down", "j":
			if m.kindCursor < len(kindChoices)-1 {
				m.kindCursor++
			}
		case "enter":
			m.srcKind = kindChoices[m.kindCursor].kind
			m.input = ""
			m.fieldErr = ""
			m.step = stepSource
		}

	case stepSource:
		switch key {
		case "esc":
			m.step = stepKind
		case "enter":
			desc := source.Descriptor{Kind: m.srcKind, Value: strings.TrimSpace(m.input)}
			if err := desc.Validate(); err != nil {
				m.fieldErr = wizerr.UserMessage(err)
				return m, nil
			}
			m.srcVal = desc.Value
			m.input = m.target
			m.fieldErr = ""
			m.step = stepTarget
		default:
			m.input = editLine(m.input, msg)
		}

	case stepTarget:
		switch key {
		case "esc":
			m.input = m.srcVal
			m.step = stepSource
		case "enter":
			target := strings.TrimSpace(m.input)
			if target == "" {
				m.fieldErr = "target directory is required"
				return m, nil
			}
			m.target = target
			m.fieldErr = ""
			m.kindCursor = 0
			m.step = stepOptions
		default:
			m.input = editLine(m.input, msg)
		}

	case stepOptions:
		switch key {
		case "esc":
			m.input = m.target
			m.step = stepTarget
		case "up", "k", "down", "j":
			m.kindCursor = 1 - optionIndex(m.kindCursor)
		case " ":
			if optionIndex(m.kindCursor) == 0 {
				m.install = !m.install
			} else {
				m.nested = !m.nested
			}
		case "enter":
			m.step = stepConfirm
		}

	case stepConfirm:
		switch key {
		case "esc":
			m.step = stepOptions
		case "enter", "y":
			return m.startRun()
		case "n", "q":
			return m, tea.Quit
		}

	case stepRunning:
		switch key {
		case "q", "ctrl+c", "esc":
			if m.cancelRun != nil {
				m.cancelling = true
				m.cancelRun()
			}
		}

	case stepDone:
		switch key {
		case "q", "enter", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

// startRun launches the worker goroutine and switches to the run view.
func (m wizardModel) startRun() (tea.Model, tea.Cmd) {
	runner, cleanup := m.cli.newRunner()
	// Console output would corrupt the TUI; the run view renders the
	// sink's entries instead.
	runner.Logger = log.New(io.Discard)
	ctx, cancel := context.WithCancel(context.Background())

	m.runner = runner
	m.cleanup = cleanup
	m.cancelRun = cancel
	m.entries = runner.Sink.Subscribe(0)
	m.logLines = nil
	m.step = stepRunning

	req := setup.Request{
		Source:          source.Descriptor{Kind: m.srcKind, Value: m.srcVal},
		TargetDir:       m.target,
		AutoInstall:     m.install,
		NestedManifests: m.nested,
	}
	run := func() tea.Msg {
		res, err := runner.Execute(ctx, req)
		cancel()
		return runDoneMsg{result: res, err: err}
	}
	return m, tea.Batch(run, waitForEntry(m.entries), tickFrame())
}

func waitForEntry(ch <-chan runlog.Entry) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return logClosedMsg{}
		}
		return logEntryMsg(e)
	}
}

func tickFrame() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// kindChoices are the source kinds offered by the first wizard page.
var kindChoices = []struct {
	kind  source.Kind
	label string
	hint  string
}{
	{source.KindFolder, "Local folder", "copy an existing directory"},
	{source.KindArchive, "Archive file", "extract a .zip, .tar.gz, .tar.bz2, .tar.xz, or .7z"},
	{source.KindGit, "Git URL", "clone a remote repository"},
}

// editLine applies a key event to a plain single-line text field.
func editLine(s string, msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyRunes:
		return s + string(msg.Runes)
	case tea.KeySpace:
		return s + " "
	case tea.KeyBackspace:
		if s != "" {
			r := []rune(s)
			return string(r[:len(r)-1])
		}
	}
	return s
}

func optionIndex(cursor int) int {
	if cursor < 0 || cursor > 1 {
		return 0
	}
	return cursor
}

func (m wizardModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Repository Setup Wizard"))
	b.WriteString("\n\n")

	switch m.step {
	case stepKind:
		b.WriteString("Where does the repository come from?\n\n")
		for i, choice := range kindChoices {
			cursor := "  "
			style := StyleValue
			if i == m.kindCursor {
				cursor = "▸ "
				style = StyleHighlight
			}
			b.WriteString(cursor + style.Render(choice.label))
			b.WriteString("  " + StyleDim.Render(choice.hint))
			b.WriteString("\n")
		}
		b.WriteString("\n" + StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))

	case stepSource:
		b.WriteString(fmt.Sprintf("Enter the %s:\n\n", sourcePrompt(m.srcKind)))
		b.WriteString("  " + StyleValue.Render(m.input) + StyleHighlight.Render("█"))
		b.WriteString("\n")
		if m.fieldErr != "" {
			b.WriteString("\n  " + StyleError.Render(iconError+" "+m.fieldErr) + "\n")
		}
		b.WriteString("\n" + StyleDim.Render("⏎ continue  esc back"))

	case stepTarget:
		b.WriteString("Where should the repository be placed?\n\n")
		b.WriteString("  " + StyleValue.Render(m.input) + StyleHighlight.Render("█"))
		b.WriteString("\n")
		if m.fieldErr != "" {
			b.WriteString("\n  " + StyleError.Render(iconError+" "+m.fieldErr) + "\n")
		}
		b.WriteString("\n" + StyleDim.Render("⏎ continue  esc back"))

	case stepOptions:
		b.WriteString("Options:\n\n")
		b.WriteString(renderToggle(optionIndex(m.kindCursor) == 0, m.install, "Install dependencies after setup"))
		b.WriteString(renderToggle(optionIndex(m.kindCursor) == 1, m.nested, "Detect manifests in nested directories"))
		b.WriteString("\n" + StyleDim.Render("↑/↓ navigate  space toggle  ⏎ continue  esc back"))

	case stepConfirm:
		b.WriteString("Ready to run:\n\n")
		b.WriteString(confirmRow("Source", fmt.Sprintf("%s (%s)", m.srcVal, m.srcKind)))
		b.WriteString(confirmRow("Target", m.target))
		b.WriteString(confirmRow("Install", yesNo(m.install)))
		b.WriteString(confirmRow("Nested", yesNo(m.nested)))
		b.WriteString("\n" + StyleDim.Render("⏎/y run  esc back  n quit"))

	case stepRunning:
		frame := spinnerFrames[m.frame%len(spinnerFrames)]
		status := "Setting up repository..."
		if m.cancelling {
			status = "Cancelling..."
		}
		b.WriteString(styleIconSpinner.Render(frame) + " " + status + "\n\n")
		for _, line := range m.logLines {
			b.WriteString("  " + StyleDim.Render(line) + "\n")
		}
		b.WriteString("\n" + StyleDim.Render("q cancel"))

	case stepDone:
		if m.runErr != nil {
			b.WriteString(styleIconError.Render(iconError) + " " + StyleError.Render("Setup failed") + "\n\n")
			b.WriteString("  " + wizerr.UserMessage(m.runErr) + "\n")
		} else if m.result != nil {
			b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + StyleSuccess.Render("Setup complete") + "\n\n")
			b.WriteString(confirmRow("Location", m.result.FinalPath))
			b.WriteString(confirmRow("Files", fmt.Sprintf("%d", m.result.FilesProcessed)))
			b.WriteString(confirmRow("Duration", m.result.Duration.Round(time.Millisecond).String()))
			for _, rec := range m.result.Installs {
				if rec.Success {
					b.WriteString("  " + StyleSuccess.Render(iconSuccess) + " " + rec.Command + "\n")
				} else {
					b.WriteString("  " + StyleWarning.Render(iconWarning+" "+wizerr.UserMessage(rec.Err)) + "\n")
				}
			}
			if m.result.LogPath != "" {
				b.WriteString(confirmRow("Log", m.result.LogPath))
			}
		}
		b.WriteString("\n" + StyleDim.Render("⏎ exit"))
	}

	b.WriteString("\n")
	return b.String()
}

func sourcePrompt(k source.Kind) string {
	switch k {
	case source.KindFolder:
		return "folder path"
	case source.KindArchive:
		return "archive path"
	default:
		return "Git URL"
	}
}

func renderToggle(selected, on bool, label string) string {
	cursor := "  "
	style := StyleValue
	if selected {
		cursor = "▸ "
		style = StyleHighlight
	}
	box := "[ ]"
	if on {
		box = "[x]"
	}
	return cursor + style.Render(box+" "+label) + "\n"
}

func confirmRow(key, value string) string {
	return "  " + StyleDim.Render(fmt.Sprintf("%-9s", key)) + StyleValue.Render(value) + "\n"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
