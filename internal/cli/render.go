package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/models"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgYellow)
	lowColor      = color.New(color.FgCyan)
	okColor       = color.New(color.FgGreen)
	errColor      = color.New(color.FgRed)
	dimColor      = color.New(color.Faint)
	userColor     = color.New(color.FgBlue, color.Bold)
	agentColor    = color.New(color.FgMagenta, color.Bold)
)

func severityText(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return criticalColor.Sprint(s)
	case models.SeverityHigh:
		return highColor.Sprint(s)
	case models.SeverityLow:
		return lowColor.Sprint(s)
	default:
		return string(s)
	}
}

func statusText(s models.AlertStatus) string {
	if s == models.AlertResolved {
		return okColor.Sprint(s)
	}
	return string(s)
}

// renderAlerts prints the feed as a table, marking the selected alert.
func renderAlerts(w io.Writer, state console.FeedState[models.Alert]) {
	if state.Error != "" {
		errColor.Fprintf(w, "last refresh failed: %s\n", state.Error)
	}
	if len(state.Items) == 0 {
		dimColor.Fprintln(w, "no alerts")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tSEVERITY\tSTATUS\tMACHINE\tTECHNICIAN\tTITLE")
	for _, a := range state.Items {
		marker := " "
		if state.Selected != nil && state.Selected.ID == a.ID {
			marker = ">"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", marker, a.ID, severityText(a.Severity), statusText(a.Status), a.Machine, a.Technician, a.Title)
	}
	_ = tw.Flush()
}

// renderWorkOrder prints the detail pane of the selected alert.
func renderWorkOrder(w io.Writer, state console.DetailState[models.WorkOrder]) {
	switch {
	case state.Loading:
		dimColor.Fprintln(w, "work order: loading...")
	case state.Value == nil:
		dimColor.Fprintln(w, "work order: not linked")
	default:
		wo := state.Value
		fmt.Fprintf(w, "work order %s: %s, priority %s, %s, due %s\n", wo.ID, wo.Status, wo.Priority, wo.Type, wo.DueDate)
	}
}

// renderMessage prints one chat message with its citations.
func renderMessage(w io.Writer, msg models.ChatMessage) {
	if msg.Role == models.RoleUser {
		userColor.Fprint(w, "you: ")
	} else {
		agentColor.Fprint(w, "agent: ")
	}
	fmt.Fprintln(w, msg.Text)
	for _, c := range msg.Citations {
		page := ""
		if c.PageNumber != nil {
			page = fmt.Sprintf(" p.%d", *c.PageNumber)
		}
		dimColor.Fprintf(w, "  [%s%s] %.0f%% %s\n", c.SourceName, page, c.Confidence*100, strings.TrimSpace(c.Snippet))
	}
}

// renderStats prints the dashboard figures.
func renderStats(w io.Writer, stats models.DashboardStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "active nodes\t%d\n", stats.ActiveNodes)
	fmt.Fprintf(tw, "uptime\t%s\n", stats.Uptime)
	fmt.Fprintf(tw, "manuals processed\t%d\n", stats.ManualsProcessed)
	fmt.Fprintf(tw, "vector speed\t%s\n", stats.VectorSpeed)
	fmt.Fprintf(tw, "data sources\t%s\n", strings.Join(stats.DataSources, ", "))
	_ = tw.Flush()
}

// renderAction prints an action banner.
func renderAction(w io.Writer, state console.ActionState) {
	switch state.Status {
	case console.StatusSuccess:
		okColor.Fprintln(w, state.Message)
	case console.StatusError:
		errColor.Fprintln(w, state.Error)
	}
}
