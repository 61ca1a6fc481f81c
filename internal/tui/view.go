package tui

import (
	"strings"

	"github.com/hay-kot/guestbook/internal/styles"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(bannerStyle.Render(styles.Banner))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Name") + "\n")
	b.WriteString(" " + m.name.View() + "\n\n")
	b.WriteString(labelStyle.Render("Message") + "\n")
	b.WriteString(m.text.View() + "\n\n")

	b.WriteString(m.sendButton())
	if m.notice != nil {
		b.WriteString("  " + styles.NoticeStyle.Render(m.notice.Text))
	}
	b.WriteString("\n")

	if m.handle != nil && !m.modelReady {
		b.WriteString(statusStyle.Render("loading moderation model...") + "\n")
	}

	b.WriteString(styles.DividerStyle.Render(divider(m.width)) + "\n")
	b.WriteString(m.feedView())

	if m.feedErr != nil {
		b.WriteString(errorStyle.Render("feed unavailable: "+m.feedErr.Error()) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) sendButton() string {
	switch {
	case m.sending:
		return buttonDisabledStyle.Render("Sending...")
	case m.canSubmit():
		return buttonStyle.Render("Send")
	default:
		return buttonDisabledStyle.Render("Send")
	}
}

func (m Model) feedView() string {
	if len(m.messages) == 0 {
		return statusStyle.Render("No messages yet.") + "\n"
	}

	parts := make([]string, len(m.messages))
	for i, msg := range m.messages {
		parts[i] = styles.RenderMessage(msg)
	}
	return feedStyle.Render(strings.Join(parts, "\n\n")) + "\n"
}

func divider(width int) string {
	if width <= 0 {
		width = 40
	}
	return strings.Repeat("─", width)
}
