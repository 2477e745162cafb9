// Package chat implements the interactive chat room: a terminal UI
// with a persistent transcript, a sliding context window and live
// reload of the chat prompt file.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gemai/internal/command"
	"gemai/internal/config"
	"gemai/internal/history"
	"gemai/internal/logging"
	"gemai/internal/prompt"
	"gemai/internal/run"
)

// Options configure a chat session.
type Options struct {
	Prefs config.Preferences
	Store *history.Store
}

// Run opens the chat room and blocks until the user leaves.
func Run(opts Options) error {
	cfg, err := config.Build(command.Chat, config.Invocation{}, opts.Prefs)
	if err != nil {
		return err
	}

	m, err := newModel(cfg, opts)
	if err != nil {
		return err
	}
	defer m.close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type execResult struct {
	result *run.Result
	err    error
}

type (
	chunkMsg         string
	doneMsg          execResult
	promptChangedMsg struct{}
	watchErrMsg      error
)

var (
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	aiStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type model struct {
	cfg   *config.RequestConfig
	prefs config.Preferences
	store *history.Store
	log   *zap.SugaredLogger

	viewport viewport.Model
	input    textarea.Model
	renderer *glamour.TermRenderer
	ready    bool

	messages []history.ChatMessage
	pending  string // assistant text still streaming
	status   string
	errText  string

	streaming bool
	stream    chan string
	result    chan execResult

	watcher *fsnotify.Watcher
}

func newModel(cfg *config.RequestConfig, opts Options) (*model, error) {
	messages, err := opts.Store.Messages()
	if err != nil {
		return nil, err
	}

	input := textarea.New()
	input.Placeholder = cfg.UI.Placeholder
	input.CharLimit = 0
	input.SetHeight(3)
	input.Focus()

	m := &model{
		cfg:      cfg,
		prefs:    opts.Prefs,
		store:    opts.Store,
		log:      logging.L(logging.CategoryUI),
		input:    input,
		messages: messages,
		status:   cfg.Model.DisplayName,
	}

	// Hot reload of the chat prompt file: edits apply to the next turn
	// without leaving the room.
	if path := opts.Prefs.PromptPath(command.Chat); path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err == nil && watcher.Add(path) == nil {
			m.watcher = watcher
		} else if watcher != nil {
			watcher.Close()
		}
	}
	return m, nil
}

func (m *model) close() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.watcher != nil {
		cmds = append(cmds, m.watchPrompt())
	}
	return tea.Batch(cmds...)
}

func (m *model) watchPrompt() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return promptChangedMsg{}
			}
			return watchErrMsg(nil)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return watchErrMsg(err)
		}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		inputHeight := m.input.Height() + 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.input.SetWidth(msg.Width)
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-2),
		)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			if !m.streaming {
				if err := m.store.ClearMessages(); err == nil {
					m.messages = nil
					m.refreshViewport()
				}
			}
			return m, nil
		case tea.KeyEnter:
			if msg.Alt {
				break // alt+enter inserts a newline via the textarea
			}
			if m.streaming {
				return m, nil
			}
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.send(query)
		}

	case chunkMsg:
		m.pending = string(msg)
		m.refreshViewport()
		return m, m.waitForUpdate()

	case doneMsg:
		m.streaming = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			// Keep whatever streamed in as a regular turn so the
			// transcript stays honest about partial answers.
			if m.pending != "" {
				m.appendMessage("assistant", m.pending)
			}
		} else {
			m.errText = ""
			m.appendMessage("assistant", msg.result.Text)
			m.status = msg.result.Footer
		}
		m.pending = ""
		m.refreshViewport()
		return m, nil

	case promptChangedMsg:
		m.reloadPrompt()
		return m, m.watchPrompt()

	case watchErrMsg:
		if msg != nil {
			m.log.Warnw("prompt watch error", "error", error(msg))
		}
		return m, m.watchPrompt()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// send persists the user turn, folds the trailing window into the
// query and starts the request.
func (m *model) send(query string) tea.Cmd {
	windowed := contextQuery(m.messages, m.cfg.Chat.WindowSize, query)

	m.appendMessage("user", query)
	m.pending = ""
	m.errText = ""
	m.streaming = true
	m.status = "thinking..."
	m.refreshViewport()

	m.stream = make(chan string, 32)
	m.result = make(chan execResult, 1)

	runner := run.New(run.Options{
		Store: m.store,
		Render: func(text string) {
			select {
			case m.stream <- text:
			default: // drop intermediate frames rather than block the stream
			}
		},
	})

	cfg := m.cfg
	go func() {
		res, err := runner.Execute(context.Background(), cfg, windowed)
		m.result <- execResult{result: res, err: err}
	}()
	return m.waitForUpdate()
}

func (m *model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case text := <-m.stream:
			return chunkMsg(text)
		case r := <-m.result:
			return doneMsg(r)
		}
	}
}

func (m *model) appendMessage(role, content string) {
	msg := history.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := m.store.AppendMessage(msg); err != nil {
		m.log.Warnw("transcript append failed", "error", err)
	}
	m.messages = append(m.messages, msg)
}

// reloadPrompt recomposes the system prompt from the (changed) prompt
// file. The next turn uses the new prompt.
func (m *model) reloadPrompt() {
	fallback := command.FallbackPrompt(command.Chat, m.prefs.PrimaryLanguage, m.prefs.SecondaryLanguage)
	_, system := prompt.Compose(command.Chat, m.prefs.PromptPath(command.Chat), m.prefs.PrimaryLanguage, fallback)
	m.cfg.Model.SystemPrompt = system
	m.status = "prompt reloaded"
	m.log.Debugw("chat prompt reloaded")
}

func (m *model) refreshViewport() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	for _, msg := range m.messages {
		sb.WriteString(m.renderTurn(msg.Role, msg.Content))
	}
	if m.pending != "" {
		sb.WriteString(m.renderTurn("assistant", m.pending))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m *model) renderTurn(role, content string) string {
	label := userStyle.Render("You")
	body := content + "\n\n"
	if role == "assistant" {
		label = aiStyle.Render("AI")
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(content); err == nil {
				body = rendered
			}
		}
	}
	return label + "\n" + body
}

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}
	status := statusStyle.Render(m.status)
	if m.errText != "" {
		status = errStyle.Render("error: " + m.errText)
	}
	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), status, m.input.View())
}

// contextQuery folds the trailing window of the transcript into one
// prompt: window counts exchanges (a user turn plus its answer), and
// the current query closes the prompt.
func contextQuery(messages []history.ChatMessage, window int, query string) string {
	if window <= 0 || len(messages) == 0 {
		return query
	}
	keep := window * 2
	if len(messages) > keep {
		messages = messages[len(messages)-keep:]
	}

	var sb strings.Builder
	sb.WriteString("Conversation so far:\n\n")
	for _, msg := range messages {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", role, msg.Content)
	}
	sb.WriteString("User: ")
	sb.WriteString(query)
	return sb.String()
}
