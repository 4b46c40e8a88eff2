package style

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#7C3AED")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#F59E0B")
	Cyan    = lipgloss.Color("#06B6D4")
	Blue    = lipgloss.Color("#7A7AFF")
	Dim     = lipgloss.Color("#6B7280")
	White   = lipgloss.Color("#F9FAFB")
	Border  = lipgloss.Color("#374151")

	// Text styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
		Foreground(Dim).
		Italic(true)

	Bold = lipgloss.NewStyle().Bold(true).Foreground(White)

	Healthy   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Unhealthy = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warning   = lipgloss.NewStyle().Foreground(Yellow)
	Info      = lipgloss.NewStyle().Foreground(Cyan)

	DimText = lipgloss.NewStyle().Foreground(Dim)

	// Status indicators
	DotHealthy   = Healthy.Render("●")
	DotUnhealthy = Unhealthy.Render("●")
	DotWarning   = Warning.Render("●")
	DotDim       = DimText.Render("●")

	// Badges
	Badge = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true)

	RoleBadge      = Badge.Foreground(Cyan)
	AdminBadge     = Badge.Foreground(Green)
	ModeratorBadge = Badge.Foreground(Blue)

	// Borders
	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1).
		MarginBottom(1)

	CardPassed = CardStyle.BorderForeground(Green)
	CardFailed = CardStyle.BorderForeground(Red)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Primary).
		Padding(1, 2)

	// Modal while it is still entering or already leaving.
	ModalFaded = ModalStyle.BorderForeground(Dim).Foreground(Dim)

	// Header / banner
	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	TabActive   = lipgloss.NewStyle().Bold(true).Foreground(White).Background(Primary).Padding(0, 1)
	TabInactive = lipgloss.NewStyle().Foreground(Dim).Padding(0, 1)

	// Step indicators
	StepPending = DimText
	StepRunning = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	StepDone    = lipgloss.NewStyle().Foreground(Green)
	StepFailed  = lipgloss.NewStyle().Foreground(Red).Bold(true)

	// Table
	TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Dim).
		PaddingRight(2)

	TableCell = lipgloss.NewStyle().PaddingRight(2)
	Selected  = lipgloss.NewStyle().Foreground(White).Background(Border)

	// Error box
	ErrorBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Red).
		Foreground(Red).
		Padding(0, 1).
		MarginTop(1)

	// Success box
	SuccessBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Green).
		Foreground(Green).
		Padding(0, 1).
		MarginTop(1)

	// Code blocks in test reports
	CodeBlock = lipgloss.NewStyle().
		Foreground(White).
		PaddingLeft(2)

	// Key-value
	Key = lipgloss.NewStyle().Foreground(Dim).Width(14)
	Val = lipgloss.NewStyle().Foreground(White)
)

func StatusDot(online bool) string {
	if online {
		return DotHealthy
	}
	return DotUnhealthy
}

// RoleStyle picks the badge for a role by its privilege flags.
func RoleStyle(isAdmin, isModerator bool) lipgloss.Style {
	switch {
	case isAdmin:
		return AdminBadge
	case isModerator:
		return ModeratorBadge
	default:
		return RoleBadge
	}
}
