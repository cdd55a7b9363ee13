package sim

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/game"
	"uptime-sim/internal/graph"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// metricsMsg carries the latest metrics row.
type metricsMsg struct{ telemetry.MetricsRow }

// stateMsg carries the full state after a tick.
type stateMsg struct{ st *game.State }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setSinkMsg struct {
	fn func(reducer.Command) error
}

type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogExecute
	dialogMitigate
)

const (
	maxLogLines         = 1000
	maxSectionHeightPct = 0.35
)

// TUIWriter renders the session using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cat *catalog.Catalog) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cat), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements MetricsWriter.
func (w *TUIWriter) Write(row telemetry.MetricsRow) error {
	w.program.Send(metricsMsg{row})
	return nil
}

// WriteBatch outputs multiple metrics rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.MetricsRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvents implements EventWriter.
func (w *TUIWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, e := range rows {
		line := fmt.Sprintf("%s[%s]%s %s%-12s%s %s",
			colorGray, e.Timestamp.Format(time.TimeOnly), colorReset,
			eventColor(e.Kind), strings.ToUpper(e.Kind), colorReset,
			e.Message)
		if e.Node != "" {
			line += fmt.Sprintf(" %snode=%s%s", colorCyan, e.Node, colorReset)
		}
		w.program.Send(logMsg{line: line})
	}
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(st *game.State) error {
	w.program.Send(stateMsg{st: st})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetCommandSink registers where operator commands are sent.
func (w *TUIWriter) SetCommandSink(fn func(reducer.Command) error) {
	w.program.Send(setSinkMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	catalog      *catalog.Catalog
	table        table.Model
	vp           viewport.Model
	nodeVP       viewport.Model
	logs         []string
	state        *game.State
	metrics      telemetry.MetricsRow
	admin        bool
	wrap         bool
	autoscroll   bool
	showNodes    bool
	help         bool
	header       string
	headerHeight int
	height       int
	sink         func(reducer.Command) error
	input        textinput.Model
	dialog       dialogKind
	status       string
}

func newTUIModel(cat *catalog.Catalog) tuiModel {
	cols := []table.Column{
		{Title: "Metric", Width: 12},
		{Title: "Value", Width: 12},
		{Title: "Metric", Width: 12},
		{Title: "Value", Width: 12},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(metricRows(telemetry.MetricsRow{})), table.WithHeight(6))
	return tuiModel{
		catalog:    cat,
		table:      t,
		vp:         viewport.New(0, 0),
		nodeVP:     viewport.New(0, 0),
		autoscroll: true,
		showNodes:  true,
	}
}

func metricRows(r telemetry.MetricsRow) []table.Row {
	return []table.Row{
		{"Users", fmt.Sprintf("%.0f", r.Users), "Cash", fmt.Sprintf("%.0f", r.Cash)},
		{"RPS", fmt.Sprintf("%.1f", r.RPS), "Revenue", fmt.Sprintf("%.0f", r.Revenue)},
		{"Error rate", fmt.Sprintf("%.3f", r.ErrorRate), "Reputation", fmt.Sprintf("%.1f", r.Reputation)},
		{"Latency p95", fmt.Sprintf("%.0fms", r.LatencyP95), "Tech debt", fmt.Sprintf("%.1f", r.TechDebt)},
		{"Uptime", fmt.Sprintf("%.2f%%", r.Uptime*100), "Fatigue", fmt.Sprintf("%.1f", r.AlertFatigue)},
		{"Streak", fmt.Sprintf("%.0fs", r.UptimeStreak), "Burnout", fmt.Sprintf("%.1f", r.Burnout)},
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width / 2)
		m.vp.Width = msg.Width
		m.nodeVP.Width = msg.Width
		m.height = msg.Height
		m.refreshHeader()
		m.refreshNodes()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.dialog != dialogNone {
			switch msg.Type {
			case tea.KeyEnter:
				m.submitDialog()
				m.dialog = dialogNone
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.dialog = dialogNone
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "space", "p":
			m.send(reducer.TogglePause{})
			return m, nil
		case "+", "=":
			m.send(reducer.SetSpeed{Speed: m.speed() * 2})
			return m, nil
		case "-":
			m.send(reducer.SetSpeed{Speed: m.speed() / 2})
			return m, nil
		case "x":
			m.openDialog(dialogExecute, "action_id[,incident_id]", m.suggestExecute())
			return m, nil
		case "M":
			m.openDialog(dialogMitigate, "incident_id,action_id", m.suggestMitigate())
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.refreshHeader()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "n":
			m.showNodes = !m.showNodes
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case metricsMsg:
		m.metrics = msg.MetricsRow
		m.table.SetRows(metricRows(msg.MetricsRow))
		m.refreshHeader()
	case stateMsg:
		m.state = msg.st
		m.refreshHeader()
		m.refreshNodes()
	case adminMsg:
		m.admin = msg.active
	case setSinkMsg:
		m.sink = msg.fn
	}
	return m, nil
}

func (m tuiModel) speed() float64 {
	if m.state == nil || m.state.Speed <= 0 {
		return 1
	}
	return m.state.Speed
}

func (m *tuiModel) send(cmd reducer.Command) {
	if m.sink == nil {
		m.status = "no simulator attached"
		return
	}
	if err := m.sink(cmd); err != nil {
		m.status = fmt.Sprintf("%s: %v", cmd.Type(), err)
		return
	}
	m.status = fmt.Sprintf("queued %s", cmd.Type())
}

func (m *tuiModel) openDialog(kind dialogKind, placeholder, value string) {
	m.input = textinput.New()
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.dialog = kind
	m.updateViewportHeight()
}

// suggestExecute prefills the first incident id so a fix can be typed in front of it.
func (m tuiModel) suggestExecute() string {
	if m.state == nil || len(m.state.Incidents) == 0 {
		return ""
	}
	return "," + m.state.Incidents[0].ID
}

func (m tuiModel) suggestMitigate() string {
	if m.state == nil || len(m.state.Incidents) == 0 {
		return ""
	}
	return m.state.Incidents[0].ID + ","
}

func (m *tuiModel) submitDialog() {
	parts := strings.Split(m.input.Value(), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch m.dialog {
	case dialogExecute:
		if parts[0] == "" {
			m.status = "missing action id"
			return
		}
		cmd := reducer.ExecuteAction{ActionID: parts[0]}
		if len(parts) > 1 {
			cmd.IncidentID = parts[1]
		}
		m.send(cmd)
	case dialogMitigate:
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			m.status = "expected incident_id,action_id"
			return
		}
		m.send(reducer.MitigateIncident{IncidentID: parts[0], ActionID: parts[1]})
	}
}

func (m *tuiModel) refreshHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	m.updateViewportHeight()
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	nodeHeight := 0
	if m.showNodes {
		lines := 1
		if m.state != nil {
			lines = len(m.nodeLines())
		}
		maxLines := int(float64(m.height) * maxSectionHeightPct)
		if maxLines < 1 {
			maxLines = 1
		}
		if lines > maxLines {
			lines = maxLines
		}
		m.nodeVP.Height = lines
		nodeHeight = 2 + lines
	}
	dialogHeight := 0
	if m.dialog != dialogNone {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - nodeHeight - dialogHeight - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshNodes() {
	content := "none"
	if lines := m.nodeLines(); len(lines) > 0 {
		content = strings.Join(lines, "\n")
	}
	m.nodeVP.SetContent(content)
	m.updateViewportHeight()
}

func (m tuiModel) nodeLines() []string {
	if m.state == nil || m.state.Graph == nil {
		return nil
	}
	var lines []string
	for _, id := range m.state.Graph.SortedIDs() {
		n := m.state.Graph.Nodes[id]
		if !n.Active() {
			continue
		}
		line := fmt.Sprintf("%-14s %s %5.0f%% %6.0fms err=%.3f hp=%.2f x%d %s%s%s",
			id, utilBar(n.Utilization), n.Utilization*100, n.Latency, n.ErrorRate, n.Health,
			n.Scaling.Current, modeColor(n.Mode), n.Mode, colorReset)
		if m.nodeVP.Width > 0 {
			line = truncate.StringWithTail(line, uint(m.nodeVP.Width), "…")
		}
		lines = append(lines, line)
	}
	return lines
}

func utilBar(u float64) string {
	const width = 10
	filled := int(u*width + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	c := colorGreen
	switch {
	case u >= 0.9:
		c = colorRed
	case u >= 0.7:
		c = colorYellow
	}
	return c + strings.Repeat("█", filled) + colorGray + strings.Repeat("░", width-filled) + colorReset
}

func modeColor(mode graph.Mode) string {
	switch mode {
	case graph.ModeDown:
		return colorRed
	case graph.ModeNormal:
		return colorGreen
	default:
		return colorYellow
	}
}

func severityColor(sev catalog.Severity) string {
	switch sev {
	case catalog.SeverityCrit:
		return colorRed
	case catalog.SeverityWarn:
		return colorYellow
	default:
		return colorCyan
	}
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	width := m.vp.Width/2 - 1
	incidents := renderIncidentTree(m.state, m.wrap, width)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, incidents)
}

func renderIncidentTree(st *game.State, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Incidents\n")
	if st == nil || len(st.Incidents) == 0 {
		b.WriteString("└─ all quiet")
		return b.String()
	}
	for i, inc := range st.Incidents {
		prefix := "├─"
		if i == len(st.Incidents)-1 && len(st.Actions) == 0 {
			prefix = "└─"
		}
		line := fmt.Sprintf("%s %s%s%s %s @%s %.0f%% %s(%s)%s",
			prefix, severityColor(inc.Severity), inc.Severity, colorReset,
			inc.Name, inc.Target, inc.MitigationLevel*100, colorGray, inc.ID, colorReset)
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	for i, a := range st.Actions {
		prefix := "├─"
		if i == len(st.Actions)-1 {
			prefix = "└─"
		}
		b.WriteString(fmt.Sprintf("%s %sACTION%s %s %.0f%%\n", prefix, colorBlue, colorReset, a.Name, a.Progress*100))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider, m.vp.View()}
	if m.showNodes {
		sections = append(sections, divider, "Nodes:", m.nodeVP.View())
	}
	if m.dialog != dialogNone {
		title := "Execute action:"
		if m.dialog == dialogMitigate {
			title = "Mitigate incident:"
		}
		sections = append(sections, divider, title+" "+m.input.View())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	state := fmt.Sprintf("%sSTATE%s day=%d %05.2fh", colorBlue, colorReset, m.metrics.Day, m.metrics.Hour)
	if m.state != nil {
		state += fmt.Sprintf(" speed=%sx paused=%t", strconv.FormatFloat(m.state.Speed, 'f', -1, 64), m.state.Paused)
		if m.state.GameOver {
			state += fmt.Sprintf(" %sGAME OVER: %s%s", colorRed, m.state.GameOverReason, colorReset)
		}
	}
	line := fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Nodes %s | Help %s",
		state, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.showNodes), indicator(m.help))
	if m.status != "" {
		line += " | " + m.status
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q      quit",
		" space  pause or resume",
		" + / -  double or halve speed",
		" x      execute action (action_id[,incident_id])",
		" M      mitigate incident (incident_id,action_id)",
		" w      toggle wrap",
		" s      toggle auto-scroll",
		" n      toggle nodes section",
		" h/?    toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	if m.catalog != nil {
		ids := m.catalog.ActionIDs()
		sort.Strings(ids)
		lines = append(lines, "", "Actions:")
		for _, id := range ids {
			def, _ := m.catalog.Action(id)
			lines = append(lines, fmt.Sprintf(" %-24s $%-6.0f %s", id, def.Cost, def.Name))
		}
	}
	return strings.Join(lines, "\n")
}
