// Package ui renders the operator console: decision banner, data-path
// indicator, trend timeline with playback, grid table, and the ops toggles.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sentinelops/lewsboard/cacheproxy"
	"github.com/sentinelops/lewsboard/engine"
	"github.com/sentinelops/lewsboard/model"
	"github.com/sentinelops/lewsboard/report"
)

type tickMsg time.Time

// doneMsg signals that a dispatched command finished.
type doneMsg struct{}

type saveConfirmMsg struct {
	path string
	err  error
}

const redrawInterval = time.Second

// Model is the bubbletea model. The session owns all pipeline state; the
// model holds only view concerns.
type Model struct {
	sess      *engine.Session
	router    *cacheproxy.Router
	reportDir string

	width  int
	height int

	showHelp bool

	// Timeline cursor into the payload's trend history; -1 means live edge.
	selected int

	saveMsg     string
	saveMsgTime time.Time
}

// NewModel creates the console model. router may be nil (replay mode).
func NewModel(sess *engine.Session, router *cacheproxy.Router, reportDir string) Model {
	return Model{
		sess:      sess,
		router:    router,
		reportDir: reportDir,
		selected:  -1,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(redrawInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// dispatch runs one session command off the UI goroutine.
func (m Model) dispatch(cmd engine.Command) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		sess.Do(context.Background(), cmd)
		return doneMsg{}
	}
}

func (m Model) saveReport() tea.Cmd {
	sess := m.sess
	dir := m.reportDir
	return func() tea.Msg {
		p := sess.Payload()
		if p == nil {
			return saveConfirmMsg{err: fmt.Errorf("no data yet")}
		}
		path := report.Filename(time.Now())
		if dir != "" {
			path = dir + "/" + path
		}
		if err := report.Save(path, report.Build(p, sess.Resolved())); err != nil {
			return saveConfirmMsg{err: err}
		}
		return saveConfirmMsg{path: path}
	}
}

func (m Model) history() []model.HistoryPoint {
	if p := m.sess.Payload(); p != nil {
		return p.History
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?":
			m.showHelp = true
		case "r":
			return m, m.dispatch(engine.Command{Kind: engine.CmdRefresh})
		case "a":
			return m, m.dispatch(engine.Command{Kind: engine.CmdAcknowledge})
		case "c":
			return m, m.dispatch(engine.Command{Kind: engine.CmdClearAck})
		case "m":
			return m, m.dispatch(engine.Command{Kind: engine.CmdToggleMute})
		case "v":
			return m, m.dispatch(engine.Command{Kind: engine.CmdToggleVSAT})
		case "b":
			return m, m.dispatch(engine.Command{Kind: engine.CmdToggleBlackout})
		case "y":
			return m, m.dispatch(engine.Command{Kind: engine.CmdSimulateYes})
		case "n":
			return m, m.dispatch(engine.Command{Kind: engine.CmdSimulateNo})
		case "x":
			return m, m.dispatch(engine.Command{Kind: engine.CmdClearSimulated})
		case "left", "h":
			hist := m.history()
			if len(hist) == 0 {
				break
			}
			if m.selected < 0 {
				m.selected = len(hist) - 1
			} else if m.selected > 0 {
				m.selected--
			}
		case "right", "l":
			hist := m.history()
			if len(hist) == 0 || m.selected < 0 {
				break
			}
			if m.selected < len(hist)-1 {
				m.selected++
			}
		case "enter":
			hist := m.history()
			if m.selected >= 0 && m.selected < len(hist) {
				return m, m.dispatch(engine.Command{
					Kind:   engine.CmdEnterPlayback,
					Sample: hist[m.selected],
				})
			}
		case "esc":
			m.selected = -1
			return m, tea.Batch(
				m.dispatch(engine.Command{Kind: engine.CmdStopAutoplay}),
				m.dispatch(engine.Command{Kind: engine.CmdExitPlayback}),
			)
		case " ", "space":
			if m.sess.Status().AutoPlay {
				return m, m.dispatch(engine.Command{Kind: engine.CmdStopAutoplay})
			}
			return m, m.dispatch(engine.Command{Kind: engine.CmdStartAutoplay})
		case "S":
			return m, m.saveReport()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tick()

	case doneMsg:
		// State lives in the session; nothing to absorb.

	case saveConfirmMsg:
		if msg.err != nil {
			m.saveMsg = fmt.Sprintf("Save failed: %v", msg.err)
		} else {
			m.saveMsg = fmt.Sprintf("Saved: %s", msg.path)
		}
		m.saveMsgTime = time.Now()
	}
	return m, nil
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	if m.width == 0 {
		return "Loading..."
	}
	st := m.sess.Status()

	var sections []string
	sections = append(sections, m.renderBanner(st))
	sections = append(sections, m.renderPathLine(st))
	if st.Payload != nil {
		if len(st.Payload.Factors) > 0 {
			sections = append(sections, m.renderFactors(st.Payload))
		}
		sections = append(sections, m.renderTimeline(st))
		if len(st.Payload.GridCells) > 0 {
			sections = append(sections, m.renderGrid(st.Payload))
		}
		if len(st.Payload.EvacZones) > 0 && st.Resolved.Decision.IsYes() {
			sections = append(sections, m.renderZones(st.Payload))
		}
		sections = append(sections, m.renderSync(st))
	} else {
		sections = append(sections, labelStyle.Render("Waiting for first data cycle..."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return content + "\n" + m.renderStatusBar(st)
}

func (m Model) renderBanner(st engine.Status) string {
	text := fmt.Sprintf("DECISION: %s", st.Resolved.Decision)
	style := bannerNoStyle
	if st.Resolved.Decision.IsYes() {
		style = bannerYesStyle
		text = "DECISION: YES - EVACUATE"
	}
	banner := style.Render(text)

	meta := fmt.Sprintf("confidence %.2f", st.Resolved.Confidence)
	if st.Payload != nil && st.Payload.LeadTimeHours > 0 {
		meta += fmt.Sprintf("  lead %gh", st.Payload.LeadTimeHours)
	}
	if st.Resolved.Source != model.SourceLive {
		meta += "  " + warnStyle.Render(fmt.Sprintf("[%s]", st.Resolved.Source))
	}
	if st.Firing {
		meta += "  " + critStyle.Render("ALARM")
	}
	if st.Acked {
		meta += "  " + okStyle.Render(fmt.Sprintf("ACK %s", st.AckAt.Local().Format("15:04:05")))
	}

	district := ""
	if st.Payload != nil {
		district = titleStyle.Render(st.Payload.District) + "  " + labelStyle.Render(st.Payload.UpdatedAt)
	}
	return lipgloss.JoinVertical(lipgloss.Left, district, banner, labelStyle.Render(meta))
}

func (m Model) renderPathLine(st engine.Status) string {
	var style lipgloss.Style
	switch st.Path {
	case model.PathLive:
		style = okStyle
	case model.PathCache:
		style = warnStyle
	default:
		style = critStyle
	}
	line := style.Render(st.Path.String())
	if m.router != nil {
		line += labelStyle.Render(fmt.Sprintf("  tiles cached: %d", m.router.TileCount()))
	}
	return line
}

func (m Model) renderFactors(p *model.Payload) string {
	var chips []string
	for _, f := range p.Factors {
		style := okStyle
		switch strings.ToLower(f.Level) {
		case "high", "critical":
			style = critStyle
		case "elevated", "medium", "moderate":
			style = warnStyle
		}
		chips = append(chips, style.Render(fmt.Sprintf("%s: %s", f.Name, f.Value)))
	}
	return panelStyle.Render(strings.Join(chips, "   "))
}

// renderTimeline draws the feed's trend history as a strip of decision
// marks, with the playback cursor highlighted.
func (m Model) renderTimeline(st engine.Status) string {
	hist := st.Payload.History
	if len(hist) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, pt := range hist {
		mark := okStyle.Render("▁")
		if model.NormalizeDecision(pt.Decision).IsYes() {
			mark = critStyle.Render("█")
		}
		if i == m.selected {
			mark = selectedStyle.Render("┃")
		}
		sb.WriteString(mark)
	}
	title := titleStyle.Render("Timeline")
	detail := ""
	if m.selected >= 0 && m.selected < len(hist) {
		pt := hist[m.selected]
		detail = amberStyle.Render(fmt.Sprintf("  %s  %s @ %.2f", pt.T, pt.Decision, pt.Confidence))
	}
	if st.Playback {
		detail += "  " + warnStyle.Render("[PLAYBACK]")
	}
	if st.AutoPlay {
		detail += "  " + warnStyle.Render("[AUTO]")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title+detail, sb.String())
}

func (m Model) renderGrid(p *model.Payload) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Grid Cells (top risk)"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%-10s %6s %6s %7s %6s\n", "GRID", "RISK", "SOIL", "RAIN", "VIB")
	for _, g := range p.TopCells(8) {
		line := fmt.Sprintf("%-10s %6.2f %6.2f %7.1f %6g", g.GridNo, g.Risk, g.SoilSaturation, g.RainfallMM, g.Vibration)
		sb.WriteString(riskStyle(g.Risk).Render(line))
		sb.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderZones(p *model.Payload) string {
	var sb strings.Builder
	sb.WriteString(critStyle.Render("Evacuation Zones"))
	sb.WriteString("\n")
	for _, z := range p.EvacZones {
		fmt.Fprintf(&sb, "%s  %s", z.Name, strings.ToUpper(z.Action))
		if z.Shelter != "" {
			fmt.Fprintf(&sb, "  shelter: %s", z.Shelter)
		}
		if z.ETAMinutes > 0 {
			fmt.Fprintf(&sb, "  ETA %dm", z.ETAMinutes)
		}
		sb.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderSync(st engine.Status) string {
	var sb strings.Builder
	if sms := st.Payload.SMSDigest(); sms != "" {
		sb.WriteString(labelStyle.Render("SMS: "))
		sb.WriteString(valueStyle.Render(sms))
		sb.WriteString("\n")
	}
	sb.WriteString(labelStyle.Render("Sync: "))
	sb.WriteString(valueStyle.Render(report.SyncSummary(st.Payload, st.VSAT)))
	return sb.String()
}

func (m Model) renderStatusBar(st engine.Status) string {
	flag := func(on bool, name string) string {
		if on {
			return warnStyle.Render("[" + name + "]")
		}
		return labelStyle.Render(" " + name + " ")
	}
	left := flag(st.Muted, "MUTED") + flag(st.VSAT, "VSAT") + flag(st.Blackout, "BLACKOUT")
	if m.saveMsg != "" && time.Since(m.saveMsgTime) < 5*time.Second {
		left += "  " + okStyle.Render(m.saveMsg)
	}
	help := helpStyle.Render("a:ack  m:mute  v:vsat  b:blackout  y/n/x:sim  enter:playback  S:report  ?:help  q:quit")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + help
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("lewsboard — Landslide Early Warning Console"))
	sb.WriteString("\n\n")
	sb.WriteString("  r         Refresh now\n")
	sb.WriteString("  a         Acknowledge alert (YES only)\n")
	sb.WriteString("  c         Clear acknowledgment\n")
	sb.WriteString("  m         Toggle alarm mute\n")
	sb.WriteString("  v         Toggle VSAT (low-bandwidth) polling\n")
	sb.WriteString("  b         Toggle blackout drill (cache only)\n")
	sb.WriteString("  y / n     Simulate YES / NO decision\n")
	sb.WriteString("  x         Clear simulated decision\n")
	sb.WriteString("  ←/→ h/l   Move timeline cursor\n")
	sb.WriteString("  Enter     Pin playback to selected sample\n")
	sb.WriteString("  Space     Toggle autoplay through history\n")
	sb.WriteString("  Esc       Back to live\n")
	sb.WriteString("  S         Save situation report\n")
	sb.WriteString("  ?         Toggle this help\n")
	sb.WriteString("  q/Ctrl+C  Quit\n")
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Press any key to close"))
	return sb.String()
}
