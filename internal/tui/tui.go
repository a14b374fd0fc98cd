// internal/tui/tui.go
// Package tui provides the interactive chat interface over the answer
// pipeline. One question is in flight at a time; the persona is fixed for
// the session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/dossier/internal/history"
	"github.com/mwiater/dossier/internal/persona"
	"github.com/mwiater/dossier/internal/pipeline"
	"github.com/mwiater/dossier/internal/util"
)

var (
	headerStyle   = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	youStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	botStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	sourceStyle   = lipgloss.NewStyle().Faint(true)
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// turn is one asked-and-answered exchange.
type turn struct {
	question string
	response *pipeline.AnswerResponse
	err      error
}

// answerMsg is sent when the pipeline finishes a question.
type answerMsg struct{ response *pipeline.AnswerResponse }

// answerErr is sent when the pipeline fails a question.
type answerErr struct{ error }

// tickMsg drives the elapsed-time readout while a question is in flight.
type tickMsg time.Time

type model struct {
	ctx       context.Context
	pipe      *pipeline.Pipeline
	who       persona.Persona
	sessionID string

	textArea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns            []turn
	pending          string
	isLoading        bool
	width, height    int
	requestStartTime time.Time
}

func initialModel(ctx context.Context, pipe *pipeline.Pipeline, who persona.Persona) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Ask about the portfolio..."
	ta.Focus()
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = -1
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(100, 5)

	return &model{
		ctx:       ctx,
		pipe:      pipe,
		who:       who,
		sessionID: history.NewSessionID(),
		spinner:   s,
		textArea:  ta,
		viewport:  vp,
	}
}

// askCmd runs one question through the pipeline off the UI goroutine.
func askCmd(ctx context.Context, pipe *pipeline.Pipeline, who persona.Persona, sessionID, question string) tea.Cmd {
	return func() tea.Msg {
		response, err := pipe.Answer(ctx, pipeline.AnswerRequest{
			Question:  question,
			Persona:   who,
			SessionID: sessionID,
		})
		if err != nil {
			return answerErr{error: err}
		}
		return answerMsg{response: response}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			question := strings.TrimSpace(m.textArea.Value())
			if question != "" && !m.isLoading {
				m.pending = question
				m.textArea.Reset()
				m.isLoading = true
				m.requestStartTime = time.Now()
				cmds = append(cmds, m.spinner.Tick, askCmd(m.ctx, m.pipe, m.who, m.sessionID, question), tickCmd())
			}
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 2
		footerHeight := 4
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - footerHeight
		m.viewport.SetContent(m.renderTranscript())

	case answerMsg:
		m.turns = append(m.turns, turn{question: m.pending, response: msg.response})
		m.pending = ""
		m.isLoading = false
		m.textArea.Focus()
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case answerErr:
		m.turns = append(m.turns, turn{question: m.pending, err: msg.error})
		m.pending = ""
		m.isLoading = false
		m.textArea.Focus()
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tickMsg:
		if m.isLoading {
			return m, tickCmd()
		}
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.textArea, cmd = m.textArea.Update(msg)
	cmds = append(cmds, cmd)

	if m.isLoading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var builder strings.Builder
	builder.WriteString(headerStyle.Render(fmt.Sprintf("Dossier · persona: %s", m.who)))
	builder.WriteString("\n\n")
	builder.WriteString(m.viewport.View())
	builder.WriteString("\n\n")

	if m.isLoading {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString(fmt.Sprintf("  %s Thinking... %ss\n", m.spinner.View(), timer))
	} else {
		builder.WriteString(m.textArea.View())
		builder.WriteString("\n")
	}
	builder.WriteString(helpStyle.Render("  enter: ask · esc: quit"))
	return builder.String()
}

// renderTranscript lays out every finished turn, including source
// attributions and the degraded badge. Answer text is wrapped to the
// viewport so long completions stay readable.
func (m *model) renderTranscript() string {
	if len(m.turns) == 0 && m.pending == "" {
		return helpStyle.Render("Ask a question to get started.")
	}

	wrapWidth := util.Max(24, util.Min(m.viewport.Width-2, 100))

	var builder strings.Builder
	for _, t := range m.turns {
		builder.WriteString(youStyle.Render("You: "))
		builder.WriteString(t.question)
		builder.WriteString("\n")

		if t.err != nil {
			builder.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", t.err)))
			builder.WriteString("\n\n")
			continue
		}

		builder.WriteString(botStyle.Render("Dossier: "))
		builder.WriteString(util.WrapToWidth(t.response.AnswerText, wrapWidth))
		builder.WriteString("\n")
		builder.WriteString(sourceStyle.Render(attributionLine(t.response)))
		if t.response.Degraded {
			builder.WriteString(" ")
			builder.WriteString(degradedStyle.Render("[degraded: answered without records]"))
		}
		builder.WriteString("\n\n")
	}

	if m.pending != "" {
		builder.WriteString(youStyle.Render("You: "))
		builder.WriteString(m.pending)
		builder.WriteString("\n")
	}
	return builder.String()
}

func attributionLine(response *pipeline.AnswerResponse) string {
	if len(response.Sources) == 0 {
		return fmt.Sprintf("no sources · %dms", response.ElapsedMS)
	}
	parts := make([]string, len(response.Sources))
	for i, id := range response.Sources {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("sources: [%s] · %dms", strings.Join(parts, " "), response.ElapsedMS)
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, pipe *pipeline.Pipeline, who persona.Persona) error {
	program := tea.NewProgram(initialModel(ctx, pipe, who), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
