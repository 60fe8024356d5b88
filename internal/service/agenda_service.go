package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/period"
)

// AgendaService builds human-readable summaries of a period's plan for
// notifications and chat views. Output uses Telegram HTML markup.
type AgendaService struct {
	planner *Planner
}

func NewAgendaService(planner *Planner) *AgendaService {
	return &AgendaService{planner: planner}
}

// PeriodSummary renders every section's bucket for the period
// containing date.
func (s *AgendaService) PeriodSummary(tf model.Timeframe, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(FormatPeriod(tf, date)))

	empty := true
	for _, section := range model.Sections() {
		views := s.planner.CommitmentsFor(section, tf, date)
		if len(views) == 0 {
			continue
		}
		empty = false

		fmt.Fprintf(&b, "\n<b>%s</b>", html.EscapeString(sectionLabel(section)))
		if remaining, limited := s.planner.CapacityRemaining(section, tf, date); limited {
			fmt.Fprintf(&b, " (%d free)", remaining)
		}
		b.WriteString("\n")

		for _, view := range views {
			b.WriteString(formatEntry(view))
			b.WriteString("\n")
		}
	}

	if empty {
		b.WriteString("\nNothing planned yet.")
	}
	return b.String()
}

func formatEntry(view CommitmentView) string {
	icon := "🔸"
	if view.Task.IsCompleted {
		icon = "✅"
	}
	line := fmt.Sprintf("%s %s", icon, html.EscapeString(view.Task.Title))
	if view.ChildCount > 0 {
		line += fmt.Sprintf(" · %d broken down", view.ChildCount)
	}
	if view.Commitment.ScheduledAt != nil {
		line += fmt.Sprintf(" · %s", view.Commitment.ScheduledAt.Format("15:04"))
	}
	return line
}

func sectionLabel(section model.Section) string {
	switch section {
	case model.SectionPrimary:
		return "Focus"
	case model.SectionOverflow:
		return "Overflow"
	}
	return string(section)
}

// FormatPeriod names the period containing date at the given timeframe.
func FormatPeriod(tf model.Timeframe, date time.Time) string {
	start, end := period.Bounds(tf, date)
	switch tf {
	case model.TimeframeDaily:
		return start.Format("Mon, 2 Jan 2006")
	case model.TimeframeWeekly:
		last := end.AddDate(0, 0, -1)
		return fmt.Sprintf("Week of %s – %s", start.Format("2 Jan"), last.Format("2 Jan 2006"))
	case model.TimeframeMonthly:
		return start.Format("January 2006")
	case model.TimeframeYearly:
		return start.Format("2006")
	}
	return start.Format("2 Jan 2006")
}
