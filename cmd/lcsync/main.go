package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hpungsan/lcsync/internal/config"
	"github.com/hpungsan/lcsync/internal/host"
	"github.com/hpungsan/lcsync/internal/mcp"
	"github.com/hpungsan/lcsync/internal/remote"
	"github.com/hpungsan/lcsync/internal/session"
	"github.com/hpungsan/lcsync/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"info": true, "complete": true, "delete": true, "check": true,
	"show": true, "forget": true, "solve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  lcsync - spaced-repetition sync agent

  Usage: lcsync <command> [options]
         lcsync --help

  MCP server mode requires piped input.`)
}

// services bundles the wired components shared by the CLI and MCP modes.
type services struct {
	cfg        *config.Config
	logger     *slog.Logger
	usernames  session.UsernameSource
	snapshots  store.SnapshotStore
	session    *session.Manager
	dispatcher *host.Dispatcher
}

// newLogger writes text logs to w. Stdout is reserved for MCP and CLI output.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// usernameSource picks the file source when configured, else the static name.
func usernameSource(cfg *config.Config) session.UsernameSource {
	if cfg.UsernameFile != "" {
		return host.FileUsername{Path: cfg.UsernameFile}
	}
	return host.StaticUsername(cfg.Username)
}

// newServices wires the remote client, session and dispatcher over snapshots.
func newServices(cfg *config.Config, snapshots store.SnapshotStore, logger *slog.Logger) (*services, error) {
	client, err := remote.New(cfg.BaseURL, remote.Options{
		HTTPClient:      &http.Client{Timeout: cfg.RequestTimeout()},
		MaxChallenges:   cfg.ChallengeAttempts(),
		ChallengeBudget: cfg.ChallengeBudget(),
		Logger:          logger.With("component", "remote"),
	})
	if err != nil {
		return nil, err
	}

	usernames := usernameSource(cfg)
	mgr := session.New(session.Options{
		Remote:    client,
		Usernames: usernames,
		Store:     snapshots,
		GuardMode: cfg.GuardMode,
		Logger:    logger.With("component", "session"),
	})

	return &services{
		cfg:        cfg,
		logger:     logger,
		usernames:  usernames,
		snapshots:  snapshots,
		session:    mgr,
		dispatcher: host.NewDispatcher(mgr, logger.With("component", "host")),
	}, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before wiring (no store needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".lcsync")

	cwd, err := os.Getwd()
	if err != nil {
		fatal("could not determine working directory: %v", err)
	}

	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	logger := newLogger(os.Stderr, cfg.SlogLevel())
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	snapshots, err := store.Open(cfg, baseDir)
	if err != nil {
		fatal("failed to open snapshot store: %v", err)
	}
	defer snapshots.Close()

	svc, err := newServices(cfg, snapshots, logger)
	if err != nil {
		fatal("%v", err)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(svc)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			snapshots.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'lcsync --help' for usage.\n")
		snapshots.Close()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(svc.dispatcher, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		snapshots.Close()
		os.Exit(1)
	}
}
