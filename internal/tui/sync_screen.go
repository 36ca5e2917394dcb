// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/MKhiriev/go-checkin/models"
)

// syncModel renders the sync panel: connectivity, queue size, the running
// sync's progress and the outcome of the last run.
type syncModel struct {
	spinner  spinner.Model
	bar      progress.Model
	running  bool
	progress models.SyncProgress

	online    bool
	queueSize int

	last   *models.SyncResult
	lastAt time.Time
}

func newSyncModel(online bool) syncModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30

	return syncModel{spinner: s, bar: bar, online: online}
}

func (m *syncModel) finish(result models.SyncResult, at time.Time) {
	m.running = false
	m.progress = models.SyncProgress{}
	m.last = &result
	m.lastAt = at
}

func (m syncModel) View() string {
	var b strings.Builder

	if m.online {
		b.WriteString(onlineStyle.Render("● online"))
	} else {
		b.WriteString(offlineStyle.Render("● offline"))
	}
	fmt.Fprintf(&b, "   queued: %d", m.queueSize)

	switch {
	case m.running:
		fmt.Fprintf(&b, "   %s sync %s %d/%d (batch %d/%d)",
			m.spinner.View(),
			m.bar.ViewAs(m.progress.Fraction()),
			m.progress.Processed, m.progress.Total,
			m.progress.Batch, m.progress.Batches)
	case m.last != nil:
		fmt.Fprintf(&b, "   last sync %s: %d synced, %d failed",
			m.lastAt.Local().Format("15:04:05"), m.last.Synced, m.last.Failed)
		if n := len(m.last.Errors); n > 0 {
			b.WriteString(errorStyle.Render(fmt.Sprintf(", %d dropped (c: copy)", n)))
		}
	}

	return b.String()
}
