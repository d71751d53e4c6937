// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stagehand/stagehand/internal/model"
	"github.com/stagehand/stagehand/internal/provision"
)

// stepDoneMsg carries a completed step outcome into the model.
type stepDoneMsg model.Step

// runDoneMsg signals pipeline completion.
type runDoneMsg struct {
	result provision.Result
	err    error
}

// progressModel renders the pipeline as a live checklist.
type progressModel struct {
	spinner  spinner.Model
	names    []string
	done     []model.Step
	events   <-chan tea.Msg
	cancel   context.CancelFunc
	result   provision.Result
	err      error
	finished bool
	aborted  bool
}

func newProgressModel(names []string, events <-chan tea.Msg, cancel context.CancelFunc) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	return progressModel{spinner: sp, names: names, events: events, cancel: cancel}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			m.cancel()
			return m, nil
		}
	case stepDoneMsg:
		m.done = append(m.done, model.Step(msg))
		return m, waitForEvent(m.events)
	case runDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Provisioning test bench"))
	b.WriteString("\n\n")

	outcomes := make(map[string]model.Step, len(m.done))
	for _, s := range m.done {
		outcomes[s.Name] = s
	}

	for i, name := range m.names {
		s, ok := outcomes[name]
		switch {
		case ok && s.Status == model.StepOK:
			b.WriteString(okStyle.Render("  ✓ " + name))
		case ok && s.Status == model.StepSkipped:
			b.WriteString(skipStyle.Render("  - " + name))
		case ok:
			b.WriteString(failStyle.Render("  ✗ " + name))
		case !m.finished && i == len(m.done):
			b.WriteString(m.spinner.View() + " " + name)
		default:
			b.WriteString(pendingStyle.Render("    " + name))
		}
		b.WriteString("\n")
		if ok && s.Detail != "" {
			b.WriteString(detailStyle.Render(s.Detail))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.aborted && !m.finished:
		b.WriteString(failStyle.Render("aborting..."))
	case m.finished && m.err != nil:
		b.WriteString(failStyle.Render(fmt.Sprintf("failed: %v", m.err)))
	case m.finished:
		b.WriteString(okStyle.Render("done"))
	default:
		b.WriteString(helpStyle.Render("q to abort"))
	}
	b.WriteString("\n")

	return docStyle.Render(b.String())
}

// RunPipeline executes the engine's selected steps behind a live progress
// view. Pressing q cancels the pipeline via the context.
func RunPipeline(ctx context.Context, engine *provision.Engine, names []string) (provision.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	steps, err := engine.Steps(names)
	if err != nil {
		return provision.Result{}, err
	}
	stepNames := make([]string, len(steps))
	for i, s := range steps {
		stepNames[i] = s.Name
	}

	events := make(chan tea.Msg, len(steps)+1)
	engine.SetObserver(func(s model.Step) {
		events <- stepDoneMsg(s)
	})

	go func() {
		res, err := engine.Run(runCtx, names)
		events <- runDoneMsg{result: res, err: err}
	}()

	m := newProgressModel(stepNames, events, cancel)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return provision.Result{}, err
	}
	pm, ok := final.(progressModel)
	if !ok {
		return provision.Result{}, fmt.Errorf("unexpected model type %T", final)
	}
	return pm.result, pm.err
}
