package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/membot/internal/config"
	"github.com/sandevgo/membot/internal/service/agent"
	"github.com/sandevgo/membot/pkg/log"
)

const defaultSessionID = "cli-local"

type ReadLine struct {
	cfg    *config.AppConfig
	engine *agent.Engine
	rl     *readline.Instance

	sessionID string
	useMemory bool
}

func NewReadLine(engine *agent.Engine, cfg *config.AppConfig) (*ReadLine, error) {
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
		cfg:       cfg,
		engine:    engine,
		rl:        rl,
		sessionID: defaultSessionID,
		useMemory: true,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("ReadLine chat started. Type 'exit' to quit, '/help' for commands.")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return nil
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
		if strings.HasPrefix(line, "/") {
			r.handleCommand(line)
			continue
		}

		result, err := r.engine.Chat(ctx, line, r.sessionID, r.useMemory)
		if err != nil {
			logger.Error().Err(err).Msg("chat turn failed")
			fmt.Fprintf(r.rl.Stdout(), "Error: %v\n", err)
			continue
		}

		fmt.Fprintf(r.rl.Stdout(), "%s\n", result.Content)
		if result.MemoryUsed > 0 {
			fmt.Fprintf(r.rl.Stdout(), "\033[38;5;240m[memory: %d entries, %d tokens]\033[0m\n", result.MemoryUsed, result.TokensUsed)
		}
	}
}

func (r *ReadLine) handleCommand(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Fprintln(r.rl.Stdout(), "/session <id>  switch to another session")
		fmt.Fprintln(r.rl.Stdout(), "/memory on|off toggle knowledge retrieval")
		fmt.Fprintln(r.rl.Stdout(), "exit           quit")
	case "/session":
		if len(fields) < 2 {
			fmt.Fprintf(r.rl.Stdout(), "current session: %s\n", r.sessionID)
			return
		}
		r.sessionID = fields[1]
		fmt.Fprintf(r.rl.Stdout(), "switched to session %s\n", r.sessionID)
	case "/memory":
		if len(fields) < 2 {
			fmt.Fprintf(r.rl.Stdout(), "memory: %v\n", r.useMemory)
			return
		}
		r.useMemory = fields[1] == "on"
		fmt.Fprintf(r.rl.Stdout(), "memory: %v\n", r.useMemory)
	default:
		fmt.Fprintf(r.rl.Stdout(), "unknown command: %s\n", fields[0])
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
