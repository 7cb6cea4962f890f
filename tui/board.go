// Package tui renders the kanban board in the terminal. All task state and
// sync behavior lives in the client package; this is presentation only.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/voicetracker/voicetracker/client"
	"github.com/voicetracker/voicetracker/database"
	"github.com/voicetracker/voicetracker/gateway"
)

// statuses in board column order.
var statuses = []string{database.StatusToDo, database.StatusInProgress, database.StatusDone}

var priorities = []string{
	database.PriorityLow,
	database.PriorityMedium,
	database.PriorityHigh,
	database.PriorityCritical,
}

const requestTimeout = 60 * time.Second

// Draft form fields, in tab order.
const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldStatus
	fieldDueDate
	fieldCount
)

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	selectedCardStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	priorityCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	priorityMedium   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priorityLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	fieldLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeFieldStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type refreshedMsg struct{ err error }
type mutationMsg struct{ err error }
type parseResultMsg struct {
	res *gateway.ExtractionResult
	err error
}
type savedMsg struct{ err error }

type boardModel struct {
	syncer *client.Syncer
	modal  *client.Modal

	tasks []database.Task

	col int
	row int

	search    string
	searching bool

	// Transcript line buffer while the modal is listening.
	transcriptInput string

	draftField int

	width   int
	height  int
	loading bool
	err     error
}

func newBoardModel(syncer *client.Syncer) boardModel {
	return boardModel{
		syncer:  syncer,
		modal:   client.NewModal(),
		loading: true,
	}
}

// Run opens the board and blocks until the user quits.
func Run(syncer *client.Syncer) error {
	p := tea.NewProgram(newBoardModel(syncer), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m boardModel) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshedMsg:
		m.loading = false
		m.err = msg.err
		m.reloadLocal()
		return m, nil

	case mutationMsg:
		// On failure the container already rolled back and recorded a
		// notice; either way the local snapshot changed.
		m.reloadLocal()
		return m, nil

	case parseResultMsg:
		if msg.err != nil {
			m.modal.ParseFailed(msg.err)
		} else {
			m.modal.ParseSucceeded(msg.res)
		}
		m.draftField = fieldTitle
		return m, nil

	case savedMsg:
		if msg.err == nil {
			m.modal.Confirm()
			m.modal.Cancel()
		}
		m.reloadLocal()
		return m, nil

	case tea.KeyMsg:
		if m.modal.Phase() != client.PhaseIdle {
			return m.updateModal(msg)
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBoard(msg)
	}

	return m, nil
}

func (m boardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.loading = true
		m.syncer.Container().ClearNotices()
		return m, m.refreshCmd()
	case "left", "h":
		if m.col > 0 {
			m.col--
			m.clampRow()
		}
	case "right", "l":
		if m.col < len(statuses)-1 {
			m.col++
			m.clampRow()
		}
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.columnTasks(statuses[m.col]))-1 {
			m.row++
		}
	case "[", "]":
		task := m.selected()
		if task == nil {
			break
		}
		delta := 1
		if msg.String() == "[" {
			delta = -1
		}
		target := m.col + delta
		if target < 0 || target >= len(statuses) {
			break
		}
		// Optimistic: the container moves the card before this frame
		// renders; the confirmation runs in the background and rolls
		// back on failure.
		confirm := m.syncer.StageMove(task.ID, statuses[target])
		m.reloadLocal()
		return m, confirmCmd(confirm)
	case "d":
		task := m.selected()
		if task == nil {
			break
		}
		confirm := m.syncer.StageDelete(task.ID)
		m.reloadLocal()
		return m, confirmCmd(confirm)
	case "n":
		m.transcriptInput = ""
		m.modal.StartCapture()
	case "a":
		m.draftField = fieldTitle
		m.modal.NewManualTask()
	case "e":
		if task := m.selected(); task != nil {
			m.draftField = fieldTitle
			m.modal.EditTask(*task)
		}
	case "/":
		m.searching = true
	}
	return m, nil
}

func (m boardModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
	case "esc":
		m.searching = false
		m.search = ""
		m.reloadLocal()
	case "backspace":
		if len(m.search) > 0 {
			m.search = m.search[:len(m.search)-1]
			m.reloadLocal()
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.search += string(msg.Runes)
			m.reloadLocal()
		}
	}
	return m, nil
}

func (m boardModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.modal.Cancel()
		m.transcriptInput = ""
		return m, nil
	}

	switch m.modal.Phase() {
	case client.PhaseListening:
		switch msg.String() {
		case "enter":
			m.modal.AppendTranscript(m.transcriptInput)
			m.transcriptInput = ""
			if m.modal.StopCapture() {
				return m, m.parseCmd(m.modal.Transcript())
			}
		case "backspace":
			if len(m.transcriptInput) > 0 {
				m.transcriptInput = m.transcriptInput[:len(m.transcriptInput)-1]
			}
		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				m.transcriptInput += keyText(msg)
			}
		}

	case client.PhaseParsing:
		// Waiting on the extraction; only esc (handled above) applies.

	case client.PhaseDraft:
		return m.updateDraft(msg)
	}

	return m, nil
}

func (m boardModel) updateDraft(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	draft := m.modal.Draft()

	switch msg.String() {
	case "enter":
		return m, m.saveCmd(draft)
	case "ctrl+r":
		if m.modal.RetryParse() {
			return m, m.parseCmd(m.modal.Transcript())
		}
		return m, nil
	case "tab", "down":
		m.draftField = (m.draftField + 1) % fieldCount
		return m, nil
	case "shift+tab", "up":
		m.draftField = (m.draftField - 1 + fieldCount) % fieldCount
		return m, nil
	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		switch m.draftField {
		case fieldPriority:
			draft.Priority = cycle(priorities, draft.Priority, delta)
		case fieldStatus:
			draft.Status = cycle(statuses, draft.Status, delta)
		}
		m.modal.SetDraft(draft)
		return m, nil
	case "backspace":
		switch m.draftField {
		case fieldTitle:
			draft.Title = trimLast(draft.Title)
		case fieldDescription:
			draft.Description = trimLast(draft.Description)
		case fieldDueDate:
			draft.DueDate = setOrNil(trimLast(stringOrEmpty(draft.DueDate)))
		}
		m.modal.SetDraft(draft)
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		text := keyText(msg)
		switch m.draftField {
		case fieldTitle:
			draft.Title += text
		case fieldDescription:
			draft.Description += text
		case fieldDueDate:
			draft.DueDate = setOrNil(stringOrEmpty(draft.DueDate) + text)
		}
		m.modal.SetDraft(draft)
	}

	return m, nil
}

func (m boardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" VoiceTracker ")

	if m.modal.Phase() != client.PhaseIdle {
		return fmt.Sprintf("%s\n\n%s", title, m.viewModal())
	}

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading tasks...\n", title)
	}

	var header string
	if m.err != nil {
		header = noticeStyle.Render(fmt.Sprintf("  Error: %v", m.err))
	} else if m.searching || m.search != "" {
		header = fmt.Sprintf("  Search: %s", m.search)
		if m.searching {
			header += "_"
		}
	}

	colWidth := m.width/len(statuses) - 4
	if colWidth < 24 {
		colWidth = 24
	}

	columns := make([]string, 0, len(statuses))
	for i, status := range statuses {
		columns = append(columns, m.renderColumn(i, status, colWidth))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	notices := m.syncer.Container().Notices()
	noticeLine := ""
	if len(notices) > 0 {
		noticeLine = noticeStyle.Render("  " + notices[len(notices)-1].Message)
	}

	help := helpStyle.Render("arrows: navigate | [/]: move | n: voice | a: add | e: edit | d: delete | /: search | r: refresh | q: quit")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", title, header, body, noticeLine, help)
}

func (m boardModel) renderColumn(idx int, status string, width int) string {
	tasks := m.columnTasks(status)

	var b strings.Builder
	b.WriteString(columnHeaderStyle.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(status), len(tasks))))
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString(helpStyle.Render("  No tasks"))
	}

	for i, t := range tasks {
		style := cardStyle
		if idx == m.col && i == m.row {
			style = selectedCardStyle
		}

		var card strings.Builder
		card.WriteString(t.Title)
		card.WriteString("\n")
		card.WriteString(priorityStyle(t.Priority).Render(t.Priority))
		if t.DueDate != nil {
			card.WriteString(helpStyle.Render("  due " + *t.DueDate))
		}

		b.WriteString(style.Width(width - 4).Render(card.String()))
		b.WriteString("\n")
	}

	return columnStyle.Width(width).Render(b.String())
}

func (m boardModel) viewModal() string {
	var b strings.Builder

	switch m.modal.Phase() {
	case client.PhaseListening:
		b.WriteString(columnHeaderStyle.Render("Voice Command"))
		b.WriteString("\n\n  Listening... type what you would say and press enter.\n\n")
		transcript := m.modal.Transcript()
		if transcript != "" {
			b.WriteString(fmt.Sprintf("  %q\n", transcript))
		}
		b.WriteString(fmt.Sprintf("  > %s_\n\n", m.transcriptInput))
		b.WriteString(helpStyle.Render("  enter: analyze | esc: cancel"))

	case client.PhaseParsing:
		b.WriteString(columnHeaderStyle.Render("Voice Command"))
		b.WriteString("\n\n  Processing...\n\n")
		b.WriteString(fmt.Sprintf("  %q\n\n", m.modal.Transcript()))
		b.WriteString(helpStyle.Render("  esc: cancel"))

	case client.PhaseDraft:
		header := "New Task"
		if m.modal.Editing() {
			header = "Edit Task"
		}
		b.WriteString(columnHeaderStyle.Render(header))
		b.WriteString("\n\n")

		if errText := m.modal.LastError(); errText != "" {
			b.WriteString(noticeStyle.Render("  AI failed to parse. Edit by hand or ctrl+r to retry."))
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("  " + errText))
			b.WriteString("\n\n")
		}

		if transcript := m.modal.Transcript(); transcript != "" && !m.modal.Editing() {
			b.WriteString(helpStyle.Render(fmt.Sprintf("  Original input: %q", transcript)))
			b.WriteString("\n\n")
		}

		draft := m.modal.Draft()
		fields := []struct {
			label string
			value string
		}{
			{"Title", draft.Title},
			{"Description", draft.Description},
			{"Priority", draft.Priority},
			{"Status", draft.Status},
			{"Due Date", stringOrEmpty(draft.DueDate)},
		}
		for i, f := range fields {
			label := fieldLabelStyle.Render(fmt.Sprintf("%-12s", f.label))
			value := f.value
			if i == m.draftField {
				value = activeFieldStyle.Render(value + "_")
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", label, value))
		}

		b.WriteString("\n")
		b.WriteString(helpStyle.Render("  tab: next field | left/right: change priority/status | enter: save | esc: cancel"))
	}

	return b.String()
}

func (m *boardModel) reloadLocal() {
	m.tasks = m.syncer.Container().Filter(m.search)
	m.clampRow()
}

func (m *boardModel) clampRow() {
	n := len(m.columnTasks(statuses[m.col]))
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m boardModel) columnTasks(status string) []database.Task {
	var out []database.Task
	for _, t := range m.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func (m boardModel) selected() *database.Task {
	tasks := m.columnTasks(statuses[m.col])
	if m.row < 0 || m.row >= len(tasks) {
		return nil
	}
	return &tasks[m.row]
}

func (m boardModel) refreshCmd() tea.Cmd {
	syncer := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return refreshedMsg{err: syncer.Refresh(ctx)}
	}
}

func confirmCmd(confirm func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return mutationMsg{err: confirm(ctx)}
	}
}

func (m boardModel) parseCmd(transcript string) tea.Cmd {
	syncer := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := syncer.Parse(ctx, transcript)
		return parseResultMsg{res: res, err: err}
	}
}

func (m boardModel) saveCmd(draft client.Draft) tea.Cmd {
	syncer := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := syncer.SaveDraft(ctx, draft)
		return savedMsg{err: err}
	}
}

func priorityStyle(p string) lipgloss.Style {
	switch p {
	case database.PriorityCritical:
		return priorityCritical
	case database.PriorityHigh:
		return priorityHigh
	case database.PriorityMedium:
		return priorityMedium
	case database.PriorityLow:
		return priorityLow
	default:
		return lipgloss.NewStyle()
	}
}

func keyText(msg tea.KeyMsg) string {
	if msg.Type == tea.KeySpace {
		return " "
	}
	return string(msg.Runes)
}

func cycle(values []string, current string, delta int) string {
	for i, v := range values {
		if v == current {
			return values[(i+delta+len(values))%len(values)]
		}
	}
	return values[0]
}

func trimLast(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return string(runes[:len(runes)-1])
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func setOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
