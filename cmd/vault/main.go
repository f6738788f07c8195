// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command vault is the command-line client of the Legacy Vault.
//
// # Startup Sequence
//
//  1. Initialize structured logger (stderr, JSON).
//  2. Load configuration from VAULT_* environment variables.
//  3. Open the persistent session store.
//  4. Wire the API client, session service and state controller.
//  5. Restore the previous session.
//  6. Run the requested command.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/legacyvault/internal/admin/email"
	"github.com/taibuivan/legacyvault/internal/apiclient"
	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/config"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/platform/ctxutil"
	"github.com/taibuivan/legacyvault/internal/storage"
	"github.com/taibuivan/legacyvault/internal/users/auth"
	"github.com/taibuivan/legacyvault/internal/users/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Command output goes to stdout; logs never mix with it.
	log := newLogger(os.Stderr, slog.LevelWarn)
	slog.SetDefault(log)

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(os.Stderr, slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Debug("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.String("store_driver", cfg.StoreDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, log, os.Args[1:], os.Stdin, os.Stdout)
	stop()

	os.Exit(code)
}

// newLogger builds the JSON logger with the global app attribute.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("app", constants.AppName))
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	in         *bufio.Reader
	out        io.Writer
	auth       *auth.Service
	controller *session.Controller
	email      *email.Service
}

/*
run wires the client, restores the session and executes one command.

Parameters:
  - args: []string (command name followed by its flags)
  - in: io.Reader (source for passwords not given as flags)
  - out: io.Writer (command output)

Returns:
  - int: Process exit code (0 success, 1 failure, 2 usage)
*/
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, in io.Reader, out io.Writer) int {
	if len(args) == 0 || isHelp(args[0]) {
		usage(out)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	command, found := commands[args[0]]
	if !found {
		fmt.Fprintf(out, "Unknown command %q.\n\n", args[0])
		usage(out)
		return exitUsage
	}

	ctx = ctxutil.WithLogger(ctx, log.With(slog.String("command", args[0])))

	// ── 3. Session Store ──────────────────────────────────────────────────
	store, closer, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("startup failure", slog.String("context", "open session store"), slog.Any("error", err))
		fmt.Fprintln(out, "Error: the session store could not be opened. Check VAULT_STORE_DRIVER.")
		return exitFailure
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			log.Error("store close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Domain Wiring ──────────────────────────────────────────────────
	record := auth.NewRecord(store, log)
	client := apiclient.NewFromConfig(cfg, record, sessionNotice(out), log)
	authService := auth.NewService(client, record, log)

	application := &app{
		cfg:        cfg,
		log:        log,
		in:         bufio.NewReader(in),
		out:        out,
		auth:       authService,
		controller: session.NewController(authService, log),
		email:      email.NewService(client, log),
	}

	// ── 5. Restore ────────────────────────────────────────────────────────
	state := application.controller.Restore(ctx)
	log.Debug("session_ready", slog.String("phase", string(state.Phase)))

	// ── 6. Command ────────────────────────────────────────────────────────
	if err := command.run(application, ctx, args[1:]); err != nil {
		if isUsage(err) {
			return exitUsage
		}
		ctxutil.GetLogger(ctx).Debug("command_failed",
			slog.String("kind", string(apperr.KindOf(err))),
			slog.Any("error", err),
		)
		renderError(out, err)
		return exitFailure
	}
	return exitOK
}

// sessionNotice is the CLI navigator: the only forced location is the login page.
func sessionNotice(out io.Writer) apiclient.Navigator {
	return apiclient.NavigatorFunc(func(path string) {
		if path == constants.RouteLogin || path == constants.RouteAdminLogin {
			fmt.Fprintln(out, "Session expired. Run `vault login` to sign in again.")
			return
		}
		fmt.Fprintf(out, "Continue at %s\n", path)
	})
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, errors are rendered by the
// command runner.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		fmt.Fprintln(os.Stderr, "Error: invalid configuration:", err)
		os.Exit(exitFailure)
	}
}
