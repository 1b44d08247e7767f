// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toughchat/tough/internal/provider"
)

// =============================================================================
// SETUP WIZARD MODEL
// =============================================================================

type setupPhase int

const (
	phasePickProvider setupPhase = iota
	phaseEnterValue
	phaseDone
)

var (
	wizardBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(1, 2)

	wizardCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)
)

// setupResult is what the wizard collected. Value is the API key, or the
// Ollama URL for ollama.
type setupResult struct {
	Provider provider.Provider
	Value    string
}

// setupModel is the bubbletea model behind "tough setup": pick a provider,
// then enter its key (hidden) or its URL.
type setupModel struct {
	phase     setupPhase
	providers []provider.Provider
	cursor    int
	input     textinput.Model
	ollamaURL string
	err       string
	result    *setupResult
	cancelled bool
}

func newSetupModel(active provider.Provider, ollamaURL string) setupModel {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 48

	m := setupModel{
		providers: provider.All(),
		input:     ti,
		ollamaURL: ollamaURL,
	}
	for i, p := range m.providers {
		if p == active {
			m.cursor = i
		}
	}
	return m
}

func (m setupModel) selected() provider.Provider {
	return m.providers[m.cursor]
}

// Init implements tea.Model.
func (m setupModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.phase == phaseEnterValue {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if key.String() == "ctrl+c" {
		m.cancelled = true
		return m, tea.Quit
	}

	switch m.phase {
	case phasePickProvider:
		return m.updatePick(key)
	case phaseEnterValue:
		return m.updateEnter(key)
	}
	return m, nil
}

func (m setupModel) updatePick(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.providers)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.phase = phaseEnterValue
		m.err = ""
		p := m.selected()
		if p.RequiresKey() {
			m.input.SetValue("")
			m.input.Placeholder = "paste your " + p.DisplayName() + " API key"
			m.input.EchoMode = textinput.EchoPassword
			m.input.EchoCharacter = '*'
		} else {
			m.input.SetValue(m.ollamaURL)
			m.input.Placeholder = provider.DefaultOllamaURL
			m.input.EchoMode = textinput.EchoNormal
		}
		return m, m.input.Focus()
	}
	return m, nil
}

func (m setupModel) updateEnter(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.phase = phasePickProvider
		m.input.Blur()
		m.err = ""
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		p := m.selected()
		if p.RequiresKey() {
			if value == "" {
				m.err = "API key must not be empty"
				return m, nil
			}
		} else {
			if value == "" {
				value = provider.DefaultOllamaURL
			}
			if err := validateURL(value); err != nil {
				m.err = err.Error()
				return m, nil
			}
		}
		m.result = &setupResult{Provider: p, Value: value}
		m.phase = phaseDone
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

// View implements tea.Model.
func (m setupModel) View() string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Configure provider") + "\n\n")

	switch m.phase {
	case phasePickProvider:
		for i, p := range m.providers {
			line := "  " + p.DisplayName()
			if i == m.cursor {
				line = wizardCursorStyle.Render("> " + p.DisplayName())
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n" + DimStyle.Render("up/down to move, enter to select, q to quit"))

	case phaseEnterValue:
		p := m.selected()
		label := p.DisplayName() + " API key"
		if !p.RequiresKey() {
			label = "Ollama URL"
		}
		sb.WriteString(label + "\n")
		sb.WriteString(m.input.View() + "\n")
		if m.err != "" {
			sb.WriteString(ErrorStyle.Render(m.err) + "\n")
		}
		sb.WriteString("\n" + DimStyle.Render("enter to save, esc to go back"))

	case phaseDone:
		sb.WriteString(SuccessStyle.Render("Saved."))
	}

	return wizardBoxStyle.Render(sb.String()) + "\n"
}

// =============================================================================
// SETUP HANDLER
// =============================================================================

// HandleSetup runs the configuration wizard and stores the result.
func HandleSetup(args Args) error {
	if err := RequiresTTY("run setup"); err != nil {
		return fmt.Errorf("%w (use 'tough provider' and 'tough key' instead)", err)
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	ctrl := app.Controller

	final, err := tea.NewProgram(newSetupModel(ctrl.Provider(), ctrl.Settings().OllamaURL)).Run()
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	m := final.(setupModel)
	if m.cancelled || m.result == nil {
		fmt.Println(DimStyle.Render("Setup cancelled; nothing changed."))
		return nil
	}

	if err := applySetup(app, *m.result); err != nil {
		return err
	}

	fmt.Println(RenderField("Provider", ctrl.Provider().DisplayName()))
	fmt.Println(RenderField("Model", ctrl.Model()))
	fmt.Println(DimStyle.Render("Run 'tough' to start chatting."))
	return nil
}

// applySetup stores the wizard's choice.
func applySetup(app *App, res setupResult) error {
	ctrl := app.Controller
	if res.Provider.RequiresKey() {
		if err := ctrl.SetCredential(res.Provider, res.Value); err != nil {
			return err
		}
	} else {
		ctrl.SetOllamaURL(res.Value)
	}
	if res.Provider != ctrl.Provider() {
		return ctrl.SetProvider(res.Provider)
	}
	return nil
}
