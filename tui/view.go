package tui

import (
	"dreamreel/entities"
	"fmt"
	"github.com/charmbracelet/lipgloss"
	"strings"
)

const (
	dateLayout      = "Jan 2, 2006 15:04"
	archivePageSize = 16
)

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenRecording:
		body = m.viewRecording()
	case screenArchive:
		body = m.viewArchive()
	case screenDetail:
		body = m.viewDetail()
	case screenSettings:
		body = m.viewSettings()
	default:
		body = m.viewHome()
	}

	var footer []string
	if m.notice != "" {
		footer = append(footer, m.styles.Success.Render(m.notice))
	}
	if m.err != "" {
		footer = append(footer, m.styles.Error.Render(m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{body}, footer...)...)
}

func (m Model) viewHome() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("dreamreel"),
		"Tell us your dream. We'll turn it into a film.",
		m.styles.Help.Render("r record • a archive • s settings • q quit"),
	)
}

func (m Model) viewRecording() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Recording"))
	b.WriteString("\n")

	switch m.phase {
	case phaseFailed:
		b.WriteString(m.styles.Error.Render(m.failure))
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("r try again • esc discard"))
		return b.String()
	case phaseProcessing:
		b.WriteString(m.status)
	default:
		fmt.Fprintf(&b, "● %s   %d chunk(s)\n", formatElapsed(m.elapsed), m.chunks)
		b.WriteString(m.styles.Muted.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderEmojis(m.emojis))
	if m.live != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Box.Render(m.live))
	}

	help := "space stop • esc discard"
	if m.phase == phaseProcessing {
		help = "esc discard"
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(help))
	return b.String()
}

func (m Model) renderEmojis(emojis []string) string {
	if len(emojis) == 0 {
		return m.styles.Muted.Render("…")
	}
	parts := make([]string, len(emojis))
	for i, e := range emojis {
		parts[i] = m.styles.Emoji.Render(e)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) viewArchive() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Dream archive"))
	b.WriteString("\n")
	if len(m.dreams) == 0 {
		b.WriteString(m.styles.Muted.Render("No dreams yet."))
	}
	page, pages := archivePage(m.cursor, len(m.dreams))
	start := page * archivePageSize
	end := min(start+archivePageSize, len(m.dreams))
	for i := start; i < end; i++ {
		d := m.dreams[i]
		line := fmt.Sprintf("%s  %s  %s", d.CreatedAt.Local().Format(dateLayout), d.DisplayTitle(), strings.Join(d.Emojis, ""))
		if i == m.cursor {
			line = m.styles.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.editing {
		b.WriteString("\n")
		b.WriteString(m.titleInput.View())
		b.WriteString(m.styles.Help.Render("enter save • esc cancel"))
		return b.String()
	}
	if pages > 1 {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("page %d/%d", page+1, pages)))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render("j/k move • h/l page • enter open • e rename • d delete • esc back"))
	return b.String()
}

// archivePage returns the zero-based page holding cursor and the page count.
func archivePage(cursor, total int) (int, int) {
	pages := (total + archivePageSize - 1) / archivePageSize
	if pages == 0 {
		return 0, 0
	}
	page := min(max(cursor, 0)/archivePageSize, pages-1)
	return page, pages
}

func (m Model) viewDetail() string {
	d := m.selected
	if d == nil {
		return m.styles.Muted.Render("Dream not found")
	}
	title := m.styles.Title.Render(d.DisplayTitle())
	if m.editing {
		title = m.titleInput.View()
	}

	rows := []string{
		title,
		m.styles.Subtitle.Render(d.CreatedAt.Local().Format(dateLayout)) + "  " + m.renderEmojis(d.Emojis),
		"",
		d.AIDescription,
		"",
		m.styles.Muted.Render("Video: ") + d.VideoURL,
		m.styles.Muted.Render("Thumbnail: ") + thumbnailLabel(*d),
		"",
		m.styles.Box.Render(d.TranscriptRaw),
	}
	help := "e rename • d delete • esc back"
	if m.editing {
		help = "enter save • esc cancel"
	}
	rows = append(rows, m.styles.Help.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func thumbnailLabel(d entities.Dream) string {
	t := d.Thumbnail()
	if strings.HasPrefix(t, "data:") {
		return "captured frame"
	}
	return t
}

func (m Model) viewSettings() string {
	labels := []string{"About you", "Triggers & boundaries"}
	rows := []string{m.styles.Title.Render("Dreamer profile")}
	for i, in := range m.profileInputs {
		label := labels[i]
		if m.focus == i {
			label = m.styles.Selected.Render(label)
		}
		rows = append(rows, label, in.View(), "")
	}

	style := "none"
	if m.styleIndex > 0 {
		style = string(entities.VisualStyles[m.styleIndex-1])
	}
	label := "Visual style"
	if m.focus == styleField {
		label = m.styles.Selected.Render(label)
	}
	rows = append(rows, label, "◀ "+style+" ▶",
		m.styles.Help.Render("tab next field • ←/→ change style • ctrl+s save • ctrl+x clear • esc back"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
