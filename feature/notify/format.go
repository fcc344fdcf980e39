package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"inventory-sync/core/reconcile"
)

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━"

// FormatDuration renders minutes below an hour, hours with one decimal below
// a day and days plus whole hours above.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d.Hours()
	switch {
	case hours < 1:
		return fmt.Sprintf("%d min", int(d.Minutes()))
	case hours < 24:
		return fmt.Sprintf("%.1f h", hours)
	default:
		days := int(hours / 24)
		rest := int(hours) % 24
		return fmt.Sprintf("%d d %d h", days, rest)
	}
}

// FormatHTML renders an event as a Telegram HTML message.
func FormatHTML(ev reconcile.Event, missingLimit int) string {
	a := ev.Attributes
	var b strings.Builder

	switch ev.Kind {
	case reconcile.EventNew:
		header(&b, "🆕 New datastore added")
		line(&b, "Name", a.DisplayName)
		line(&b, "IP", a.NetworkAddress)
		line(&b, "Hardware", a.HardwareDescription)
		line(&b, "OS", a.OSVersion)
		line(&b, "Serial A", a.SerialA)
		line(&b, "Serial B", a.SerialB)
		line(&b, "Site", ev.Location)
		b.WriteString(separator + "\n✅ Created in NetBox")

	case reconcile.EventChanged:
		header(&b, "🔄 Datastore changed")
		line(&b, "Name", a.DisplayName)
		line(&b, "IP", a.NetworkAddress)
		b.WriteString("\n<b>Changes:</b>\n")
		for _, field := range ev.Changes.Fields() {
			c := ev.Changes[field]
			fmt.Fprintf(&b, "• <b>%s:</b> %s → %s\n", esc(field), orNA(c.Old), orNA(c.New))
		}
		b.WriteString(separator + "\n✅ Updated in NetBox")

	case reconcile.EventMissing:
		header(&b, fmt.Sprintf("⚠️ Datastore not responding (%s)", FormatDuration(ev.Downtime)))
		line(&b, "Name", a.DisplayName)
		line(&b, "IP", a.NetworkAddress)
		line(&b, "Site", ev.Location)
		lastSeen := ""
		if !ev.LastSeen.IsZero() {
			lastSeen = ev.LastSeen.UTC().Format("2006-01-02 15:04 MST")
		}
		line(&b, "Last seen", lastSeen)
		b.WriteString(separator)

	case reconcile.EventReturned:
		header(&b, "✅ Datastore is back")
		line(&b, "Name", a.DisplayName)
		line(&b, "Absent for", FormatDuration(ev.Downtime))
		b.WriteString(separator)

	case reconcile.EventDailySummary:
		formatReport(&b, ev.Report, missingLimit)

	case reconcile.EventError:
		header(&b, "❌ Inventory sync error")
		b.WriteString(esc(ev.Message) + "\n")
		b.WriteString(separator)

	default:
		header(&b, string(ev.Kind))
		line(&b, "Name", a.DisplayName)
		b.WriteString(separator)
	}
	return b.String()
}

func formatReport(b *strings.Builder, r *reconcile.DailyReport, limit int) {
	header(b, "📊 Datastores: daily report")
	if r == nil {
		b.WriteString(separator)
		return
	}
	fmt.Fprintf(b, "<b>Total:</b> %d\n", r.Total)
	fmt.Fprintf(b, "<b>🆕 New:</b> %d\n", r.New)
	fmt.Fprintf(b, "<b>🔄 Changed:</b> %d\n", r.Changed)
	fmt.Fprintf(b, "<b>⚠️ Not responding:</b> %d\n", len(r.Missing))

	if len(r.Missing) > 0 {
		if limit <= 0 {
			limit = len(r.Missing)
		}
		b.WriteString("\n<b>Not responding:</b>\n")
		for _, m := range r.Top(limit) {
			fmt.Fprintf(b, "• %s (%s)\n", esc(m.Name), FormatDuration(m.MissingFor))
		}
		if extra := len(r.Missing) - limit; extra > 0 {
			fmt.Fprintf(b, "... and %d more\n", extra)
		}
	}
	b.WriteString(separator)
}

func header(b *strings.Builder, title string) {
	fmt.Fprintf(b, "<b>%s</b>\n%s\n", esc(title), separator)
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<b>%s:</b> %s\n", label, orNA(value))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return esc(s)
}

func esc(s string) string {
	return html.EscapeString(s)
}
