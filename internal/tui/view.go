package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chris/railtl/internal/timeline"
	"github.com/chris/railtl/pkg/models"
)

// Styles
var (
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	focusDotStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	blurDotStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	captionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	zoomStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	countStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	axisStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	nowStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	emptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	helpKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

var classStyles = map[models.StatusClass]lipgloss.Style{
	models.ClassPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	models.ClassSuccess:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	models.ClassSleeping: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	models.ClassFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	models.ClassInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

const (
	marginX    = 2
	labelWidth = 32
	// captionLayout renders the visible range in the header
	captionLayout = "Jan 2, 2006"
)

func statusStyle(status string) lipgloss.Style {
	style := classStyles[models.ClassifyStatus(status)]
	if models.IsTransient(status) {
		style = style.Blink(true)
	}
	return style
}

func (m *Model) renderView() string {
	var b strings.Builder

	width := m.width
	if width == 0 {
		width = 100
	}

	contentWidth := width - 2*marginX
	if contentWidth < labelWidth+20 {
		contentWidth = labelWidth + 20
	}
	trackWidth := contentWidth - labelWidth - 1
	margin := strings.Repeat(" ", marginX)

	b.WriteString(margin + m.renderHeader())
	b.WriteString("\n")
	b.WriteString(margin + m.renderCaption())
	b.WriteString("\n")
	b.WriteString(margin + separatorStyle.Render(strings.Repeat("=", contentWidth)))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderHelp(margin))
	} else {
		b.WriteString(m.renderTimeline(margin, trackWidth))
	}

	b.WriteString("\n")
	b.WriteString(margin + separatorStyle.Render(strings.Repeat("─", contentWidth)))
	b.WriteString("\n")
	b.WriteString(margin + m.renderStatusBar())

	return b.String()
}

func (m *Model) renderHeader() string {
	dot := focusDotStyle.Render("●")
	if !m.focused {
		dot = blurDotStyle.Render("○")
	}

	title := headerStyle.Render("Deployments") + " " + dot
	if m.project == nil {
		return title
	}
	envName := ""
	if i := m.envIndex(); i >= 0 {
		envName = m.project.Environments[i].Name
	}
	if envName == "" {
		return title + " " + headerStyle.Render(m.project.Name)
	}
	return title + " " + headerStyle.Render(fmt.Sprintf("%s / %s", m.project.Name, envName))
}

// renderCaption shows the visible range and zoom level
func (m *Model) renderCaption() string {
	caption := fmt.Sprintf("%s - %s",
		m.nav.Start().Format(captionLayout),
		m.nav.End().Format(captionLayout))
	zoom := fmt.Sprintf("zoom %s", m.nav.Zoom())
	return captionStyle.Render(caption) + "  " + zoomStyle.Render(zoom)
}

func (m *Model) renderTimeline(margin string, trackWidth int) string {
	var b strings.Builder

	cols := m.Columns()
	pad := strings.Repeat(" ", labelWidth+1)

	b.WriteString(margin + pad + axisStyle.Render(axisLabels(cols, trackWidth)))
	b.WriteString("\n")
	b.WriteString(margin + pad + m.renderCursorRow(cols, trackWidth))
	b.WriteString("\n")

	if m.project == nil {
		if m.err != nil {
			b.WriteString(margin + "No data: " + m.err.Error() + "\n")
		} else {
			b.WriteString(margin + "Loading...\n")
		}
		return b.String()
	}

	rows := m.Rows()
	if len(rows) == 0 {
		b.WriteString(margin + "No services found\n")
		return b.String()
	}

	rng := m.nav.Range()
	nowPos := -1
	if pct, ok := timeline.NowIndicator(rng, m.now()); ok {
		nowPos = columnAt(pct, trackWidth)
	}

	for i, row := range rows {
		b.WriteString(margin + m.renderRowLabel(row, i == m.selectedIdx))
		b.WriteString(" ")
		b.WriteString(m.renderTrack(row.Deployments, rng, trackWidth, nowPos))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderRowLabel(row ServiceRow, selected bool) string {
	prefix := "  "
	if selected {
		prefix = "▶ "
	}

	status := "NO DEPLOYS"
	instances := 0
	if row.Latest != nil {
		status = row.Latest.Status
		instances = row.Latest.RunningInstanceCount()
	}
	badge := fmt.Sprintf("×%d", instances)

	nameWidth := labelWidth - ansi.StringWidth(prefix) - ansi.StringWidth(status) - ansi.StringWidth(badge) - 2
	name := truncateWithEllipsis(row.Service.Name, max(nameWidth, 4))
	padding := max(1, labelWidth-ansi.StringWidth(prefix)-ansi.StringWidth(name)-ansi.StringWidth(status)-ansi.StringWidth(badge)-1)

	nameStyle := normalStyle
	if selected {
		nameStyle = selectedStyle
	}
	return nameStyle.Render(prefix+name) + strings.Repeat(" ", padding) +
		statusStyle(status).Render(status) + " " + countStyle.Render(badge)
}

// trackCell is one character of a service track
type trackCell struct {
	char  string
	style lipgloss.Style
}

// renderTrack draws deployment bars for one service. Older deployments are
// drawn first so the newest wins where bars overlap.
func (m *Model) renderTrack(deployments []models.Deployment, rng timeline.Range, width, nowPos int) string {
	cells := make([]trackCell, width)
	for i := range cells {
		cells[i] = trackCell{char: "·", style: emptyStyle}
	}

	total := rng.Minutes()
	now := m.now()
	for i := len(deployments) - 1; i >= 0; i-- {
		d := deployments[i]
		p, err := timeline.PlaceEvent(d, rng.Start, total, now)
		if err != nil {
			continue
		}
		from, to := p.Cells(width)
		style := statusStyle(d.Status)
		for c := from; c < to; c++ {
			cells[c] = trackCell{char: "█", style: style}
		}
	}

	if nowPos >= 0 && nowPos < width {
		cells[nowPos] = trackCell{char: "│", style: nowStyle}
	}

	var b strings.Builder
	for _, c := range cells {
		b.WriteString(c.style.Render(c.char))
	}
	return b.String()
}

// columnAt maps a percentage onto a cell index
func columnAt(pct float64, width int) int {
	if width <= 1 {
		return 0
	}
	return int(math.Round(pct / 100 * float64(width-1)))
}

// axisLabels places column labels at their positions, skipping the final
// column and any label that would overlap the previous one
func axisLabels(cols []timeline.Column, width int) string {
	line := []rune(strings.Repeat(" ", width))
	next := 0
	for _, col := range cols {
		if !col.Labeled() || col.IsLast {
			continue
		}
		at := columnAt(col.Position, width)
		label := []rune(col.Label)
		if at < next || at+len(label) > width {
			continue
		}
		copy(line[at:], label)
		next = at + len(label) + 1
	}
	return string(line)
}

func (m *Model) renderCursorRow(cols []timeline.Column, width int) string {
	if len(cols) == 0 || m.cursor >= len(cols) {
		return ""
	}
	at := columnAt(cols[m.cursor].Position, width)
	label := "▲ " + timeLabel(cols[m.cursor])
	if at+ansi.StringWidth(label) > width {
		label = timeLabel(cols[m.cursor]) + " ▲"
		at = max(0, at-ansi.StringWidth(label)+1)
	}
	return strings.Repeat(" ", at) + cursorStyle.Render(label)
}

// timeLabel shows the cursor time with both date and clock
func timeLabel(col timeline.Column) string {
	return col.Time.Format("Jan 2 15:04")
}

func (m *Model) renderHelp(margin string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, kb := range timelineBindings() {
		b.WriteString(margin + "  " + helpKeyStyle.Render(fmt.Sprintf("%-6s", kb.key)) + " " + kb.desc + "\n")
	}
	return b.String()
}

func (m *Model) renderStatusBar() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + truncateWithEllipsis(m.err.Error(), 80))
	}

	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if !m.lastSynced.IsZero() {
		parts = append(parts, "synced "+m.lastSynced.In(m.loc).Format("15:04:05"))
	}
	parts = append(parts, "[h/l] Pan  [+/-] Zoom  [←/→ enter] Cursor  [s] Start/Stop  [?] Help  [q] Quit")
	return statusBarStyle.Render(strings.Join(parts, "  "))
}

// truncateWithEllipsis truncates a string to maxWidth, adding … if truncated
func truncateWithEllipsis(s string, maxWidth int) string {
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth-1, "") + "…"
}
