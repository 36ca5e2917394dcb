// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/models"
)

const statsInterval = 2 * time.Second

type inputMode int

const (
	modeBrowse inputMode = iota
	modeScan
	modeNote
	modeManual
)

type consoleModel struct {
	ctx    context.Context
	deps   Deps
	logger *logger.Logger

	list listModel
	sync syncModel

	mode  inputMode
	input textinput.Model

	status  string
	overlay *errorOverlayModel
	about   bool
	logout  bool

	// written by monitor and sync listeners, drained by wait commands
	connectivity chan bool
	results      chan models.SyncResult
	progress     chan tea.Msg
	unsubscribe  []func()
	// closed by close; releases the wait commands
	done      chan struct{}
	closeOnce *sync.Once
}

func newConsoleModel(ctx context.Context, deps Deps, log *logger.Logger) consoleModel {
	input := textinput.New()
	input.Width = 40

	m := consoleModel{
		ctx:          ctx,
		deps:         deps,
		logger:       log,
		list:         listModel{loading: true},
		sync:         newSyncModel(deps.Monitor.IsConnected()),
		input:        input,
		connectivity: make(chan bool, 8),
		results:      make(chan models.SyncResult, 8),
		progress:     make(chan tea.Msg, 64),
		done:         make(chan struct{}),
		closeOnce:    &sync.Once{},
	}

	m.unsubscribe = append(m.unsubscribe,
		deps.Monitor.AddListener(func(isOnline bool) {
			select {
			case m.connectivity <- isOnline:
			default:
			}
		}),
		deps.Services.SyncService.AddListener(func(result models.SyncResult) {
			select {
			case m.results <- result:
			default:
			}
		}),
	)

	return m
}

func (m consoleModel) close() {
	m.closeOnce.Do(func() {
		for _, unsubscribe := range m.unsubscribe {
			unsubscribe()
		}
		close(m.done)
	})
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		m.cmdLoadTickets(),
		m.cmdLoadStats(),
		tickStats(),
		waitForConnectivity(m.connectivity, m.done),
		waitForSyncResult(m.results, m.done),
		m.sync.spinner.Tick,
	)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ticketsLoadedMsg:
		m.list.loading = false
		if msg.err != nil {
			m.overlay = &errorOverlayModel{message: humanizeError(msg.err)}
			return m, nil
		}
		m.list.items = msg.items
		m.list.idx = min(m.list.idx, max(len(m.list.items)-1, 0))
		return m, nil

	case statsMsg:
		if msg.err == nil {
			m.list.stats = msg.stats
		}
		m.sync.queueSize = msg.queueSize
		return m, nil

	case statsTickMsg:
		return m, tea.Batch(m.cmdLoadStats(), tickStats())

	case connectivityMsg:
		m.sync.online = msg.online
		return m, waitForConnectivity(m.connectivity, m.done)

	case syncProgressMsg:
		m.sync.running = true
		m.sync.progress = msg.progress
		return m, waitForSync(m.progress, m.done)

	case syncDoneMsg:
		m.sync.running = false
		if msg.err != nil {
			m.status = humanizeError(msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		m.sync.finish(msg.result, time.Now())
		m.list.loading = true
		return m, tea.Batch(m.cmdLoadTickets(), m.cmdLoadStats())

	case backgroundSyncMsg:
		if !m.sync.running {
			m.sync.finish(msg.result, time.Now())
		}
		return m, tea.Batch(waitForSyncResult(m.results, m.done), m.cmdLoadTickets(), m.cmdLoadStats())

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case copiedMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Sync errors copied to clipboard"
		}
		return m, clearStatusAfter(3 * time.Second)

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sync.spinner, cmd = m.sync.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode != modeBrowse {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.overlay != nil {
		if key.Matches(msg, keys.enter, keys.esc) {
			m.overlay = nil
		}
		return m, nil
	}
	if m.about {
		if key.Matches(msg, keys.esc, keys.version) {
			m.about = false
		}
		return m, nil
	}

	if m.mode != modeBrowse {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case key.Matches(msg, keys.logout):
		m.logout = true
		return m, tea.Sequence(m.cmdLogout(), tea.Quit)
	case key.Matches(msg, keys.version):
		m.about = true
	case key.Matches(msg, keys.up):
		if m.list.idx > 0 {
			m.list.idx--
		}
	case key.Matches(msg, keys.down):
		if m.list.idx < len(m.list.items)-1 {
			m.list.idx++
		}
	case key.Matches(msg, keys.pageDown):
		if len(m.list.items) == listPageSize {
			m.list.offset += listPageSize
			m.list.idx = 0
			return m, m.cmdLoadTickets()
		}
	case key.Matches(msg, keys.pageUp):
		if m.list.offset > 0 {
			m.list.offset = max(m.list.offset-listPageSize, 0)
			m.list.idx = 0
			return m, m.cmdLoadTickets()
		}
	case key.Matches(msg, keys.filter):
		m.list.filter = m.list.filter.next()
		m.list.offset, m.list.idx = 0, 0
		return m, m.cmdLoadTickets()
	case key.Matches(msg, keys.refresh):
		m.list.loading = true
		return m, m.cmdRefresh()
	case key.Matches(msg, keys.scan):
		return m.startInput(modeScan, "ticket code", "")
	case key.Matches(msg, keys.note):
		if t, ok := m.list.current(); ok {
			return m.startInput(modeNote, "note", t.Note)
		}
	case key.Matches(msg, keys.manual):
		if _, ok := m.list.current(); ok {
			return m.startInput(modeManual, "reason (optional)", "")
		}
	case key.Matches(msg, keys.enter):
		if t, ok := m.list.current(); ok && !t.Scanned() {
			return m, m.cmdScan(t.Code)
		}
	case key.Matches(msg, keys.sync):
		if m.sync.running {
			return m, nil
		}
		m.sync.running = true
		return m, m.cmdSync()
	case key.Matches(msg, keys.copy):
		if m.sync.last != nil && len(m.sync.last.Errors) > 0 {
			return m, cmdCopy(formatSyncErrors(*m.sync.last))
		}
	}

	return m, nil
}

func (m consoleModel) startInput(mode inputMode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m consoleModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.esc):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.enter):
		value := m.input.Value()
		mode := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		m.input.Reset()

		switch mode {
		case modeScan:
			return m, m.cmdScan(strings.TrimSpace(value))
		case modeNote:
			if t, ok := m.list.current(); ok {
				return m, m.cmdNote(t.Code, value)
			}
		case modeManual:
			if t, ok := m.list.current(); ok {
				return m, m.cmdManual(t.Code, strings.TrimSpace(value))
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.overlay = &errorOverlayModel{message: fmt.Sprintf("%s failed: %s", msg.verb, humanizeError(msg.err))}
		return m, nil
	}

	m.list.replace(msg.outcome.Ticket)
	if msg.outcome.Queued {
		m.status = fmt.Sprintf("%s %s saved offline, will sync when online", msg.verb, msg.outcome.Ticket.Code)
	} else {
		m.status = fmt.Sprintf("%s %s done", msg.verb, msg.outcome.Ticket.Code)
	}
	return m, tea.Batch(m.cmdLoadStats(), clearStatusAfter(3*time.Second))
}

func (m consoleModel) View() string {
	if m.about {
		return renderBuildInfoWindow(m.deps.Build)
	}
	if m.overlay != nil {
		return m.overlay.View()
	}

	var b strings.Builder
	b.WriteString(m.sync.View())
	b.WriteString("\n\n")
	b.WriteString(m.list.View())

	if m.mode != modeBrowse {
		b.WriteString("\n\n")
		b.WriteString(m.inputLabel())
		b.WriteString(" [")
		b.WriteString(m.input.View())
		b.WriteString("]")
	}
	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(m.status)
	}

	help := "/: scan code │ enter: scan selected │ m: manual │ n: note │ s: sync │ r: refresh │ f: filter │ L: logout │ q: quit"
	if m.mode != modeBrowse {
		help = "enter: submit │ esc: cancel"
	}
	return renderPage("CHECK-IN  "+m.deps.EventUUID, b.String(), help)
}

func (m consoleModel) inputLabel() string {
	switch m.mode {
	case modeScan:
		return "Scan"
	case modeNote:
		return "Note"
	case modeManual:
		return "Manual check-in"
	}
	return ""
}

// ── commands ─────────────────────────────────────────────────────────────────

func (m consoleModel) cmdLoadTickets() tea.Cmd {
	ctx, svc, event := m.ctx, m.deps.Services.TicketService, m.deps.EventUUID
	opts := m.list.filter.options(m.list.offset)

	return func() tea.Msg {
		items, err := svc.Tickets(ctx, event, opts)
		return ticketsLoadedMsg{items: items, err: err}
	}
}

func (m consoleModel) cmdRefresh() tea.Cmd {
	ctx, svc, event := m.ctx, m.deps.Services.TicketService, m.deps.EventUUID
	opts := m.list.filter.options(m.list.offset)

	return func() tea.Msg {
		if _, err := svc.Refresh(ctx, event); err != nil {
			return ticketsLoadedMsg{err: err}
		}
		items, err := svc.Tickets(ctx, event, opts)
		return ticketsLoadedMsg{items: items, err: err}
	}
}

func (m consoleModel) cmdLoadStats() tea.Cmd {
	ctx, svc, q, event := m.ctx, m.deps.Services.TicketService, m.deps.Queue, m.deps.EventUUID

	return func() tea.Msg {
		stats, err := svc.Stats(ctx, event)
		return statsMsg{stats: stats, queueSize: q.Size(ctx), err: err}
	}
}

func (m consoleModel) cmdScan(code string) tea.Cmd {
	ctx, svc, event := m.ctx, m.deps.Services.CheckinService, m.deps.EventUUID

	return func() tea.Msg {
		out, err := svc.ScanTicket(ctx, event, code)
		return actionDoneMsg{verb: "Scan", outcome: out, err: err}
	}
}

func (m consoleModel) cmdNote(code, note string) tea.Cmd {
	ctx, svc, event := m.ctx, m.deps.Services.CheckinService, m.deps.EventUUID

	return func() tea.Msg {
		out, err := svc.UpdateNote(ctx, event, code, note)
		return actionDoneMsg{verb: "Note", outcome: out, err: err}
	}
}

func (m consoleModel) cmdManual(code, reason string) tea.Cmd {
	ctx, svc, event := m.ctx, m.deps.Services.CheckinService, m.deps.EventUUID

	return func() tea.Msg {
		out, err := svc.ManualCheckin(ctx, event, code, reason)
		return actionDoneMsg{verb: "Manual check-in", outcome: out, err: err}
	}
}

// cmdSync runs a sync in the background and streams its progress.
func (m consoleModel) cmdSync() tea.Cmd {
	ctx, svc, ch, done := m.ctx, m.deps.Services.SyncService, m.progress, m.done

	go func() {
		result, err := svc.Sync(ctx, func(p models.SyncProgress) {
			select {
			case ch <- syncProgressMsg{progress: p}:
			default:
			}
		})
		select {
		case ch <- syncDoneMsg{result: result, err: err}:
		case <-done:
		}
	}()

	return waitForSync(ch, done)
}

func (m consoleModel) cmdLogout() tea.Cmd {
	ctx, svc, log := m.ctx, m.deps.Services.AuthService, m.logger

	return func() tea.Msg {
		if err := svc.Logout(ctx); err != nil {
			log.Err(err).Str("func", "consoleModel.cmdLogout").Msg("logout failed")
		}
		return nil
	}
}

func cmdCopy(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}

func waitForSync(ch <-chan tea.Msg, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-done:
			return nil
		}
	}
}

func waitForConnectivity(ch <-chan bool, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case online := <-ch:
			return connectivityMsg{online: online}
		case <-done:
			return nil
		}
	}
}

func waitForSyncResult(ch <-chan models.SyncResult, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-ch:
			return backgroundSyncMsg{result: result}
		case <-done:
			return nil
		}
	}
}

func tickStats() tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg { return statsTickMsg{} })
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}
