// Package tui implements the Bubble Tea composer for guestbook.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/guestbook/internal/styles"
)

var (
	bannerStyle = styles.BannerStyle.
			PaddingLeft(1).
			PaddingBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			PaddingLeft(1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1a1b26")).
			Background(styles.ColorGreen).
			Padding(0, 2).
			MarginLeft(1)

	buttonDisabledStyle = lipgloss.NewStyle().
				Foreground(styles.ColorGray).
				Padding(0, 2).
				MarginLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			Italic(true).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.ColorRed).
			PaddingLeft(1)

	feedStyle = lipgloss.NewStyle().
			PaddingLeft(1)
)
