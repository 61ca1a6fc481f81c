// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorRed    = lipgloss.Color("#d75f6b")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

// Banner ASCII art for the header.
const Banner = `
 ╔═╗╦ ╦╔═╗╔═╗╔╦╗╔╗ ╔═╗╔═╗╦╔═
 ║ ╦║ ║║╣ ╚═╗ ║ ╠╩╗║ ║║ ║╠╩╗
 ╚═╝╚═╝╚═╝╚═╝ ╩ ╚═╝╚═╝╚═╝╩ ╩`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// NameStyle styles the author of a message.
var NameStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// TimeStyle styles message timestamps.
var TimeStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// TextStyle styles message bodies.
var TextStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// NoticeStyle styles the transient snackbar.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#1a1b26")).
	Background(ColorYellow).
	Padding(0, 1)

// TimeFormat is the layout used when rendering message timestamps.
const TimeFormat = "Jan 2 15:04"

// RenderMessage renders a message as a name/time header followed by its
// text. Line breaks in the text are kept; nothing else in it is interpreted.
func RenderMessage(m guestbook.Message) string {
	header := NameStyle.Render(m.Name) + " " + TimeStyle.Render(m.Timestamp.Local().Format(TimeFormat))

	lines := strings.Split(m.Text, "\n")
	for i, line := range lines {
		lines[i] = "  " + TextStyle.Render(line)
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// Age renders how long ago t was, for compact listings.
func Age(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return formatUnit(int(d/time.Minute), "m")
	case d < 24*time.Hour:
		return formatUnit(int(d/time.Hour), "h")
	default:
		return formatUnit(int(d/(24*time.Hour)), "d")
	}
}

func formatUnit(n int, unit string) string {
	return fmt.Sprintf("%d%s ago", n, unit)
}
