package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/hay-kot/courier/internal/client"
	"github.com/hay-kot/courier/internal/core/broker"
	"github.com/hay-kot/courier/internal/styles"
)

// maxTailLines bounds the tail buffer.
const maxTailLines = 500

type viewState int

const (
	stateTopics viewState = iota
	stateTailing
	statePublishing
)

// Options configures the monitor.
type Options struct {
	// Match filters topics with a glob pattern. Empty lists every topic.
	Match string
	// PollInterval is the delay between topic refreshes.
	PollInterval time.Duration
}

// Model is the root tea.Model of the topic monitor.
type Model struct {
	api  API
	opts Options

	state  viewState
	keys   keyMap
	help   help.Model
	table  table.Model
	tail   viewport.Model
	form   *PublishForm
	width  int
	height int

	health  client.Health
	lastErr error
	status  string

	tailTopic  string
	tailLines  []string
	tailCh     <-chan tea.Msg
	tailCancel context.CancelFunc

	quitting bool
}

// New creates the monitor model.
func New(api API, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Topic", Width: 32},
			{Title: "Subscribers", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(styles.TableStyles())

	return Model{
		api:   api,
		opts:  opts,
		keys:  defaultKeyMap(),
		help:  help.New(),
		table: t,
		tail:  viewport.New(80, 10),
	}
}

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return loadTopics(m.api, m.opts.Match)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case topicsLoadedMsg:
		m.applyTopics(msg)
		return m, schedulePollTick(m.opts.PollInterval)

	case pollTickMsg:
		return m, loadTopics(m.api, m.opts.Match)

	case tailMsg:
		if msg.topic != m.tailTopic {
			return m, nil
		}
		m.appendTail(formatTailLine(msg.msg))
		return m, waitForTail(m.tailCh)

	case tailEndedMsg:
		if msg.topic != m.tailTopic {
			return m, nil
		}
		if msg.err != nil {
			m.lastErr = msg.err
		}
		m.appendTail(mutedStyle.Render("stream closed"))
		return m, nil

	case publishedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.status = ""
		} else {
			m.lastErr = nil
			m.status = fmt.Sprintf("published to %s", msg.topic)
		}
		return m, loadTopics(m.api, m.opts.Match)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == statePublishing && m.form != nil {
		return m.updateForm(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.state {
	case statePublishing:
		if key.Matches(msg, m.keys.Back) {
			m.form.SetCancelled()
			m.form = nil
			m.state = m.returnState()
			return m, nil
		}
		return m.updateForm(msg)

	case stateTailing:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Back):
			m.stopTail()
			m.state = stateTopics
			return m, nil
		case key.Matches(msg, m.keys.Publish):
			return m.openForm(m.tailTopic)
		}
		var cmd tea.Cmd
		m.tail, cmd = m.tail.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Refresh):
		return m, loadTopics(m.api, m.opts.Match)
	case key.Matches(msg, m.keys.Publish):
		return m.openForm(m.selectedTopic())
	case key.Matches(msg, m.keys.Tail):
		topic := m.selectedTopic()
		if topic == "" {
			return m, nil
		}
		return m.startTail(topic)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.stopTail()
	m.quitting = true
	return m, tea.Quit
}

// returnState is where the form goes back to when it closes.
func (m Model) returnState() viewState {
	if m.tailCancel != nil {
		return stateTailing
	}
	return stateTopics
}

func (m Model) openForm(topic string) (tea.Model, tea.Cmd) {
	m.form = NewPublishForm(topic)
	m.state = statePublishing
	return m, m.form.Form().Init()
}

// updateForm routes msg to the form and publishes once it completes.
func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.form.Form().Update(msg)
	f, ok := model.(*huh.Form)
	if !ok {
		return m, cmd
	}
	m.form.form = f

	switch f.State {
	case huh.StateCompleted:
		m.form.SetSubmitted()
		result := m.form.Result()
		m.form = nil
		m.state = m.returnState()
		return m, publish(m.api, result.Topic, result.Message)
	case huh.StateAborted:
		m.form.SetCancelled()
		m.form = nil
		m.state = m.returnState()
		return m, nil
	}

	return m, cmd
}

func (m Model) startTail(topic string) (tea.Model, tea.Cmd) {
	m.stopTail()

	ctx, cancel := context.WithCancel(context.Background())
	m.tailTopic = topic
	m.tailLines = nil
	m.tailCancel = cancel
	m.tailCh = startTail(ctx, m.api, topic)
	m.tail.SetContent(mutedStyle.Render("waiting for messages on " + topic))
	m.state = stateTailing

	return m, waitForTail(m.tailCh)
}

func (m *Model) stopTail() {
	if m.tailCancel != nil {
		m.tailCancel()
		m.tailCancel = nil
	}
}

func (m *Model) appendTail(line string) {
	m.tailLines = append(m.tailLines, line)
	if over := len(m.tailLines) - maxTailLines; over > 0 {
		m.tailLines = m.tailLines[over:]
	}
	m.tail.SetContent(strings.Join(m.tailLines, "\n"))
	m.tail.GotoBottom()
}

func (m *Model) applyTopics(msg topicsLoadedMsg) {
	if msg.err != nil {
		m.lastErr = msg.err
		return
	}
	m.lastErr = nil
	m.health = msg.health

	rows := make([]table.Row, 0, len(msg.topics))
	for _, t := range msg.topics {
		rows = append(rows, table.Row{t.Name, strconv.Itoa(t.SubscriberCount)})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Model) selectedTopic() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func (m *Model) resize() {
	// banner (4) + title (2) + status (2) + help (2)
	content := m.height - 10
	if content < 3 {
		content = 3
	}
	m.table.SetHeight(content)
	m.tail.Width = max(m.width-4, 20)
	m.tail.Height = content
	m.help.Width = m.width
}

func formatTailLine(msg broker.Message) string {
	return fmt.Sprintf("%s %s %s",
		tailTimeStyle.Render(msg.CreatedAt.Format("15:04:05")),
		tailTopicStyle.Render("["+msg.Topic+"]"),
		msg.Body,
	)
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(bannerStyle.Render(strings.TrimPrefix(styles.Banner, "\n")))
	b.WriteString("\n")

	switch m.state {
	case statePublishing:
		b.WriteString(titleStyle.Render("Publish"))
		b.WriteString("\n\n")
		b.WriteString(m.form.View())
		return b.String()

	case stateTailing:
		b.WriteString(titleStyle.Render("Tailing " + m.tailTopic))
		b.WriteString("\n\n")
		b.WriteString(panelStyle.Render(m.tail.View()))
		b.WriteString("\n")
		b.WriteString(m.statusLine())
		b.WriteString("\n")
		b.WriteString(m.help.View(tailKeys{m.keys}))
		return b.String()
	}

	b.WriteString(titleStyle.Render("Topics"))
	b.WriteString("\n\n")
	if len(m.table.Rows()) == 0 {
		b.WriteString(mutedStyle.Render("  no topics yet"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) statusLine() string {
	if m.lastErr != nil {
		return statusErrStyle.Render("✘ " + m.lastErr.Error())
	}

	parts := []string{
		statusOKStyle.Render("● " + healthLabel(m.health)),
		mutedStyle.Render(fmt.Sprintf("queue %d", m.health.QueueDepth)),
		mutedStyle.Render(fmt.Sprintf("topics %d", m.health.Topics)),
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return strings.Join(parts, " "+iconDot+" ")
}

func healthLabel(h client.Health) string {
	if h.Status == "" {
		return "connecting"
	}
	return h.Status
}
