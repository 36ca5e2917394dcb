// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui implements the staff console: login, the ticket list of the
// current event with scan, note and manual check-in actions, and the sync
// panel showing connectivity, queue size and the last sync outcome.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/internal/service"
	"github.com/MKhiriev/go-checkin/models"
)

// ErrUserQuit is returned when the user leaves the login screen.
var ErrUserQuit = errors.New("user quit")

// Deps are the components the console reads from.
type Deps struct {
	Services  *service.ClientServices
	Monitor   *netmon.Monitor
	Queue     *queue.Queue
	EventUUID string
	Build     models.AppBuildInfo
}

// TUI runs the bubbletea programs of the client.
type TUI struct {
	deps   Deps
	logger *logger.Logger
}

// New creates the console.
func New(deps Deps, log *logger.Logger) (*TUI, error) {
	if deps.Services == nil || deps.Monitor == nil || deps.Queue == nil {
		return nil, errors.New("tui: services, monitor and queue are required")
	}
	if deps.EventUUID == "" {
		return nil, errors.New("tui: event uuid is required")
	}
	return &TUI{deps: deps, logger: log}, nil
}

// LoginFlow shows the login screen until the staff member logs in or quits.
func (t *TUI) LoginFlow(ctx context.Context) (models.Token, error) {
	pages := map[string]tea.Model{
		"login": NewLoginModel(ctx, t.deps.Services.AuthService),
	}

	root := NewRootModel(pages, "login", t.deps.Build)
	finalModel, err := tea.NewProgram(root, tea.WithAltScreen()).Run()
	if err != nil {
		return models.Token{}, err
	}

	result, ok := finalModel.(RootModel)
	if !ok {
		return models.Token{}, tea.ErrProgramKilled
	}
	if result.quitByUser {
		return models.Token{}, ErrUserQuit
	}
	return result.token, nil
}

// Console runs the main screen. logout is true when the staff member
// logged out instead of quitting.
func (t *TUI) Console(ctx context.Context) (logout bool, err error) {
	model := newConsoleModel(ctx, t.deps, t.logger)
	defer model.close()

	finalModel, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}

	result, ok := finalModel.(consoleModel)
	if !ok {
		return false, tea.ErrProgramKilled
	}
	return result.logout, nil
}
