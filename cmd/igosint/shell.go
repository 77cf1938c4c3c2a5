package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"igosint/pkg/collector"
	"igosint/pkg/export"
	"igosint/pkg/logger"
	"igosint/pkg/session"
	"igosint/pkg/ui"
)

// shell dispatches commands typed by the user or passed with --command
type shell struct {
	collector *collector.Collector
	console   *ui.Console
	prompter  *ui.Prompter
	exporter  *export.Exporter
	logger    logger.Logger
}

func newShell(c *collector.Collector, console *ui.Console, prompter *ui.Prompter, exporter *export.Exporter, log logger.Logger) *shell {
	return &shell{
		collector: c,
		console:   console,
		prompter:  prompter,
		exporter:  exporter,
		logger:    log.WithField("component", "shell"),
	}
}

// runCommands runs each named command in order. It reports whether every
// name was a known command.
func (s *shell) runCommands(ctx context.Context, names []string) bool {
	ok := true
	for _, name := range names {
		cmd, known := collector.ParseCommand(name)
		if !known {
			s.console.Error("Invalid command: %s", name)
			ok = false
			continue
		}
		if err := s.collector.Run(ctx, cmd); err != nil {
			s.collector.Report(err)
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return ok
}

// loop reads commands until exit, end of input or cancellation
func (s *shell) loop(ctx context.Context) {
	s.help()
	for ctx.Err() == nil {
		line, err := s.prompter.Ask("Run a command: ")
		if err != nil {
			if !errors.Is(err, session.ErrNoInput) {
				s.logger.WithError(err).Warn("Failed to read command")
			}
			fmt.Fprintln(s.console.Writer())
			return
		}
		if quit := s.dispatch(ctx, line); quit {
			return
		}
	}
}

// dispatch handles one shell line and reports whether the shell should stop
func (s *shell) dispatch(ctx context.Context, line string) bool {
	input := strings.ToLower(strings.TrimSpace(line))
	switch input {
	case "":
		return false
	case "exit", "quit":
		s.console.Accent("Goodbye!")
		return true
	case "help":
		s.help()
		return false
	case "json=y":
		s.exporter.SetJSON(true)
		s.console.Success("JSON output enabled")
		return false
	case "json=n":
		s.exporter.SetJSON(false)
		s.console.Success("JSON output disabled")
		return false
	case "txt=y":
		s.exporter.SetTXT(true)
		s.console.Success("TXT output enabled")
		return false
	case "txt=n":
		s.exporter.SetTXT(false)
		s.console.Success("TXT output disabled")
		return false
	}

	cmd, ok := collector.ParseCommand(input)
	if !ok {
		s.console.Error("Invalid command")
		return false
	}
	err := s.collector.Run(ctx, cmd)
	if errors.Is(err, session.ErrNoInput) {
		return true
	}
	s.collector.Report(err)
	return false
}

func (s *shell) help() {
	s.console.Accent("Commands")
	s.console.Println(ui.Rule("Commands"))
	for _, cmd := range collector.Commands() {
		s.console.Info(cmd.String(), cmd.Description())
	}
	s.console.Info("json=y/n", "Toggle JSON output")
	s.console.Info("txt=y/n", "Toggle TXT output")
	s.console.Info("exit", "Exit the shell")
}
