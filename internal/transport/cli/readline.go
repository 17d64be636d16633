package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/sandevgo/engram/internal/config"
	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/internal/service/consolidate"
	"github.com/sandevgo/engram/internal/service/ui"
	"github.com/sandevgo/engram/pkg/log"
)

const defaultConversationID = "cli-local"

// dispatchTimeout bounds the inline classification call. A timed-out dispatch
// is dropped, never persisted as a negative.
const dispatchTimeout = 15 * time.Second

type ReadLine struct {
	cfg          *config.AppConfig
	messages     core.MessagesRepository
	dispatcher   core.Dispatcher
	consolidator *consolidate.Coordinator
	rl           *readline.Instance
}

func NewReadLine(
	messages core.MessagesRepository,
	dispatcher core.Dispatcher,
	consolidator *consolidate.Coordinator,
	cfg *config.AppConfig,
) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:          cfg,
		messages:     messages,
		dispatcher:   dispatcher,
		consolidator: consolidator,
		rl:           rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("Memory session started. Type 'exit' to quit.")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		r.handle(ctx, line)
	}
}

// handle stores the message, runs the real-time dispatch inline, and nudges
// the consolidation debounce timer.
func (r *ReadLine) handle(ctx context.Context, line string) {
	logger := log.FromCtx(ctx)

	msg, err := r.messages.AddMessage(ctx, defaultConversationID, core.RoleUser, line)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store message")
		fmt.Fprintf(r.rl.Stdout(), "Error: %v\n", err)
		return
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	result, err := r.dispatcher.Dispatch(dispatchCtx, msg)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("dispatch failed")
	} else {
		r.printResult(result)
	}

	r.consolidator.Nudge(ctx)
}

func (r *ReadLine) printResult(result core.DispatchResult) {
	out := r.rl.Stdout()

	switch result.Action {
	case core.ActionIdentityLocked:
		fmt.Fprintln(out, ui.ActionStyle.Render("Nice to meet you, "+result.Title+"."))
	case core.ActionReminder:
		fmt.Fprintln(out, ui.ActionStyle.Render("Reminder set: "+result.Title+" ("+result.Detail+")"))
	case core.ActionNote:
		fmt.Fprintln(out, ui.ActionStyle.Render("Noted: "+result.Title))
	case core.ActionListCreated:
		fmt.Fprintln(out, ui.ActionStyle.Render("List created: "+result.Title))
	case core.ActionListItemAdded:
		fmt.Fprintln(out, ui.ActionStyle.Render("Added to "+result.Title+": "+result.Detail))
	case core.ActionCommitment:
		detail := result.Detail
		if detail != "" {
			detail = " (" + detail + ")"
		}
		fmt.Fprintln(out, ui.ActionStyle.Render("Tracking commitment: "+result.Title+detail))
	}
	if result.MemoriesCreated > 0 {
		fmt.Fprintln(out, ui.DescStyle.Render(fmt.Sprintf("[%d memory(ies) noted]", result.MemoriesCreated)))
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
