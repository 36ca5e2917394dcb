// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up       key.Binding
	down     key.Binding
	pageUp   key.Binding
	pageDown key.Binding
	enter    key.Binding
	esc      key.Binding
	quit     key.Binding
	logout   key.Binding
	scan     key.Binding
	manual   key.Binding
	note     key.Binding
	sync     key.Binding
	refresh  key.Binding
	filter   key.Binding
	copy     key.Binding
	version  key.Binding
}

var keys = keyMap{
	up:       key.NewBinding(key.WithKeys("up", "k")),
	down:     key.NewBinding(key.WithKeys("down", "j")),
	pageUp:   key.NewBinding(key.WithKeys("pgup", "left", "h")),
	pageDown: key.NewBinding(key.WithKeys("pgdown", "right", "l")),
	enter:    key.NewBinding(key.WithKeys("enter")),
	esc:      key.NewBinding(key.WithKeys("esc")),
	quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
	logout:   key.NewBinding(key.WithKeys("L")),
	scan:     key.NewBinding(key.WithKeys("/")),
	manual:   key.NewBinding(key.WithKeys("m")),
	note:     key.NewBinding(key.WithKeys("n")),
	sync:     key.NewBinding(key.WithKeys("s")),
	refresh:  key.NewBinding(key.WithKeys("r")),
	filter:   key.NewBinding(key.WithKeys("f")),
	copy:     key.NewBinding(key.WithKeys("c")),
	version:  key.NewBinding(key.WithKeys("v")),
}
