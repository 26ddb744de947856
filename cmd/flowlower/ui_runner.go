package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"flowlower/internal/driver"
	"flowlower/internal/ui"
)

type lowerOutcome struct {
	results []driver.UnitResult
	err     error
}

// runLowerWithUI runs LowerUnits while a progress view consumes its events.
func runLowerWithUI(ctx context.Context, title string, paths []string, opts driver.Options) ([]driver.UnitResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan lowerOutcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.LowerUnits(ctx, paths, o)
		outcomeCh <- lowerOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep draining so workers never block on a full channel
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
