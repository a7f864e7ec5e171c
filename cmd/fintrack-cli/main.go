// Command fintrack-cli is a terminal front end for the fintrack API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fintrack/internal/client"
	"fintrack/internal/log"
)

const usage = `usage: fintrack-cli [-api URL] [-session FILE] <command> [flags]

commands:
  register          create an account and log in
  login             log in
  logout            end the session
  me                show the logged in user
  categories        list categories with their subcategories
  subcategories     list subcategories of a category
  payment-methods   list payment methods
  list              list transactions with filters, sorting and totals
  add               add a transaction
  update            change fields of a transaction
  delete            delete a transaction
  search            type descriptions to search interactively
`

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	api         *client.Client
	sessionPath string
	debounce    time.Duration
	logger      *log.Logger
}

func defaultSessionPath() string {
	if p := os.Getenv("FINTRACK_SESSION_FILE"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "fintrack", "session")
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fintrack-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	apiURL := os.Getenv("FINTRACK_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000/api"
	}
	fs.StringVar(&apiURL, "api", apiURL, "API base URL")
	sessionPath := fs.String("session", defaultSessionPath(), "file holding the session token")
	debounce := fs.Duration("debounce", client.DefaultDebounce, "search debounce delay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	api, err := client.New(apiURL)
	if err != nil {
		return err
	}
	a := &app{
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		api:         api,
		sessionPath: *sessionPath,
		debounce:    *debounce,
		logger: log.New(log.Config{
			Component: log.ComponentCLI,
			Handler:   log.NewHandler(stderr, "text", slog.LevelWarn),
		}),
	}
	a.restoreToken()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register":
		return a.register(ctx, cmdArgs)
	case "login":
		return a.login(ctx, cmdArgs)
	case "logout":
		return a.logout(ctx)
	case "categories":
		return a.categories(ctx)
	case "subcategories":
		return a.subcategories(ctx, cmdArgs)
	case "payment-methods":
		return a.paymentMethods(ctx)
	}

	authed := map[string]func(context.Context, []string) error{
		"me":     a.me,
		"list":   a.list,
		"add":    a.add,
		"update": a.update,
		"delete": a.delete,
		"search": a.search,
	}
	handler, ok := authed[cmd]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	sess, err := client.Start(ctx, a.api)
	if errors.Is(err, client.ErrNoSession) {
		a.forgetToken()
		return errors.New("not logged in, run fintrack-cli login")
	}
	if err != nil {
		return err
	}
	ctx = client.WithSession(ctx, sess)

	err = handler(ctx, cmdArgs)
	if !sess.Valid() {
		a.forgetToken()
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "fintrack-cli:", err)
		os.Exit(1)
	}
}
