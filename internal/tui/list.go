// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/service"
	"github.com/MKhiriev/go-checkin/models"
)

const listPageSize = 15

type ticketFilter int

const (
	filterAll ticketFilter = iota
	filterUnscanned
	filterScanned
)

func (f ticketFilter) next() ticketFilter {
	return (f + 1) % 3
}

func (f ticketFilter) String() string {
	switch f {
	case filterUnscanned:
		return "unscanned"
	case filterScanned:
		return "scanned"
	}
	return "all"
}

func (f ticketFilter) options(offset int) cache.LoadOptions[models.Ticket] {
	opts := cache.LoadOptions[models.Ticket]{Limit: listPageSize, Offset: offset}
	switch f {
	case filterScanned:
		opts.Filter = cache.FieldEquals[models.Ticket]("checkin_status", models.CheckinStatusScanned)
	case filterUnscanned:
		opts.Filter = func(t models.Ticket) bool { return !t.Scanned() }
	}
	return opts
}

// listModel is one page of the event's tickets.
type listModel struct {
	items   []models.Ticket
	idx     int
	offset  int
	filter  ticketFilter
	loading bool
	stats   service.TicketStats
}

func (m listModel) current() (models.Ticket, bool) {
	if len(m.items) == 0 || m.idx < 0 || m.idx >= len(m.items) {
		return models.Ticket{}, false
	}
	return m.items[m.idx], true
}

// replace swaps in the updated state of a ticket on the current page.
func (m *listModel) replace(t models.Ticket) {
	for i := range m.items {
		if m.items[i].Code == t.Code {
			m.items[i] = t
			return
		}
	}
}

func statusIcon(t models.Ticket) string {
	switch {
	case t.ManualCheckin:
		return scannedStyle.Render("[M]")
	case t.Scanned():
		return scannedStyle.Render("[✓]")
	}
	return "[ ]"
}

func (m listModel) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tickets: %d   scanned: %d   unscanned: %d   filter: %s",
		m.stats.Total, m.stats.Scanned, m.stats.Unscanned, m.filter)
	if !m.stats.CachedAt.IsZero() && !m.stats.Fresh {
		b.WriteString(offlineStyle.Render("   (stale list)"))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString("Loading...\n")
	case len(m.items) == 0:
		b.WriteString("No tickets\n")
	default:
		for i, t := range m.items {
			line := fmt.Sprintf("%s %-18s %-24s %-10s %s",
				statusIcon(t),
				fitText(t.Code, 18),
				fitText(valueOrDash(t.HolderName), 24),
				timeOrDash(t.ScannedAt),
				fitText(t.Note, 30),
			)
			if i == m.idx {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\nshowing %d-%d", m.offset+1, m.offset+len(m.items))
	}

	return b.String()
}
