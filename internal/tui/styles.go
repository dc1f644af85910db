// Package tui implements the Bubble Tea topic monitor for courier.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/courier/internal/styles"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorBlue).
			PaddingLeft(1)

	bannerStyle = styles.BannerStyle.
			PaddingLeft(1).
			PaddingBottom(1)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGreen)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(styles.ColorRed)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray)

	tailTopicStyle = lipgloss.NewStyle().
			Foreground(styles.ColorYellow).
			Bold(true)

	tailTimeStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.ColorGray).
			Padding(0, 1)
)

const iconDot = "•"
