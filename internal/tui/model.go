package tui

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/composer"
	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

const modelPollInterval = 250 * time.Millisecond

type focus int

const (
	focusName focus = iota
	focusText
)

// Options configures the TUI.
type Options struct {
	Composer  *composer.Composer
	Feed      guestbook.Feed
	Handle    *toxicity.Handle // loaded in the background at startup
	TailLimit int
	Log       zerolog.Logger
}

// Model is the Bubble Tea model for the composer.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	composer  *composer.Composer
	feed      guestbook.Feed
	handle    *toxicity.Handle
	tailLimit int
	log       zerolog.Logger

	name  textinput.Model
	text  textarea.Model
	focus focus
	keys  keyMap
	help  help.Model

	sending    bool
	modelReady bool

	notice   *composer.Notice
	noticeID int

	stream   guestbook.Stream
	messages []guestbook.Message // newest first
	feedErr  error

	width int
}

// New creates the composer model.
func New(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)

	name := textinput.New()
	name.Placeholder = "Your name"
	name.Prompt = ""
	name.Focus()

	text := textarea.New()
	text.Placeholder = "Leave a message"
	text.CharLimit = 0 // unlimited
	text.ShowLineNumbers = false
	text.SetHeight(3)

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		composer:  opts.Composer,
		feed:      opts.Feed,
		handle:    opts.Handle,
		tailLimit: opts.TailLimit,
		log:       opts.Log,
		name:      name,
		text:      text,
		keys:      defaultKeys(),
		help:      help.New(),
	}
}

// messages exchanged with commands.
type (
	streamOpenedMsg struct {
		stream guestbook.Stream
		err    error
	}
	feedEventMsg  struct{ event guestbook.Event }
	feedClosedMsg struct{ err error }
	submitDoneMsg struct{ result composer.Result }
	noticeDoneMsg struct{ id int }
	modelTickMsg  struct{}
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, openFeed(m.ctx, m.feed, m.tailLimit)}
	if m.handle != nil {
		m.handle.Start(m.ctx)
		cmds = append(cmds, scheduleModelTick())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.name.Width = max(msg.Width-4, 10)
		m.text.SetWidth(max(msg.Width-2, 10))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case submitDoneMsg:
		return m.applyResult(msg.result)

	case noticeDoneMsg:
		if msg.id == m.noticeID {
			m.notice = nil
		}
		return m, nil

	case modelTickMsg:
		if m.handle.Ready() {
			m.modelReady = true
			return m, nil
		}
		return m, scheduleModelTick()

	case streamOpenedMsg:
		if msg.err != nil {
			m.feedErr = msg.err
			m.log.Error().Err(msg.err).Msg("open feed")
			return m, nil
		}
		m.stream = msg.stream
		return m, waitForEvent(m.stream)

	case feedEventMsg:
		if err := m.listener().Dispatch(msg.event); err != nil {
			m.log.Warn().Err(err).Msg("feed event")
		}
		return m, waitForEvent(m.stream)

	case feedClosedMsg:
		m.stream = nil
		m.feedErr = msg.err
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("feed closed")
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Send):
		if !m.canSubmit() {
			return m, nil
		}
		m.sending = true
		return m, m.submit()

	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
		return m, m.toggleFocus()
	}

	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusName {
		m.name, cmd = m.name.Update(msg)
	} else {
		m.text, cmd = m.text.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusName {
		m.focus = focusText
		m.name.Blur()
		return m.text.Focus()
	}
	m.focus = focusName
	m.text.Blur()
	return m.name.Focus()
}

// canSubmit reports whether the send control is enabled.
func (m Model) canSubmit() bool {
	return !m.sending && m.name.Value() != "" && m.text.Value() != ""
}

func (m Model) submit() tea.Cmd {
	var (
		ctx  = m.ctx
		c    = m.composer
		name = m.name.Value()
		text = m.text.Value()
	)
	return func() tea.Msg {
		return submitDoneMsg{result: c.Submit(ctx, name, text)}
	}
}

func (m Model) applyResult(res composer.Result) (tea.Model, tea.Cmd) {
	m.sending = false

	if res.ClearName {
		m.name.Reset()
	}
	if res.ClearText {
		m.text.Reset()
	}

	if res.Notice == nil {
		return m, nil
	}

	m.noticeID++
	m.notice = res.Notice
	id := m.noticeID
	return m, tea.Tick(res.Notice.Duration, func(time.Time) tea.Msg {
		return noticeDoneMsg{id: id}
	})
}

func (m *Model) listener() guestbook.Listener {
	return guestbook.Listener{
		OnAdded:   m.upsert,
		OnChanged: m.upsert,
		OnRemoved: m.remove,
	}
}

// upsert places msg in the newest-first list, replacing an entry with the
// same ID.
func (m *Model) upsert(msg guestbook.Message) {
	if i := m.indexOf(msg.ID); i >= 0 {
		m.messages[i] = msg
		return
	}
	pos, _ := slices.BinarySearchFunc(m.messages, msg.ID, func(e guestbook.Message, id string) int {
		return strings.Compare(id, e.ID)
	})
	m.messages = slices.Insert(m.messages, pos, msg)
}

func (m *Model) remove(msg guestbook.Message) {
	if i := m.indexOf(msg.ID); i >= 0 {
		m.messages = slices.Delete(m.messages, i, i+1)
	}
}

func (m *Model) indexOf(id string) int {
	return slices.IndexFunc(m.messages, func(e guestbook.Message) bool { return e.ID == id })
}

func (m *Model) shutdown() {
	m.cancel()
	if m.stream != nil {
		_ = m.stream.Close()
	}
}

func openFeed(ctx context.Context, feed guestbook.Feed, limit int) tea.Cmd {
	return func() tea.Msg {
		stream, err := feed.Subscribe(ctx, limit)
		return streamOpenedMsg{stream: stream, err: err}
	}
}

func waitForEvent(stream guestbook.Stream) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-stream.Events()
		if !ok {
			return feedClosedMsg{err: stream.Err()}
		}
		return feedEventMsg{event: ev}
	}
}

func scheduleModelTick() tea.Cmd {
	return tea.Tick(modelPollInterval, func(time.Time) tea.Msg {
		return modelTickMsg{}
	})
}
