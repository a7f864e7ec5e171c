// Command adduser creates a user directly in the SQL store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type options struct {
	name     string
	email    string
	password string
	backend  string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.name, "name", "", "display name (required)")
	fs.StringVar(&opts.email, "email", "", "login email (required)")
	fs.StringVar(&opts.password, "password", "", "password; prompted for when omitted")
	fs.StringVar(&opts.backend, "backend", "", "sqlite or postgres; defaults to DATA_BACKEND")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.name == "" || opts.email == "" {
		fs.Usage()
		return options{}, errors.New("-name and -email are required")
	}
	if opts.backend != "" && opts.backend != "sqlite" && opts.backend != "postgres" {
		return options{}, fmt.Errorf("unsupported backend %q", opts.backend)
	}
	return opts, nil
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(stdin io.Reader, stderr io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func run(ctx context.Context, opts options, users ledger.UserStore, stdin io.Reader, stdout, stderr io.Writer) error {
	password := opts.password
	if password == "" {
		var err error
		if password, err = readPassword(stdin, stderr); err != nil {
			return err
		}
	}

	// Tokens are never issued here, so the signing secret is irrelevant.
	svc := services.NewAuthService(users, auth.NewTokenIssuer("adduser", auth.DefaultSessionTTL))
	u, err := svc.CreateUser(ctx, opts.name, opts.email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Created user %s <%s> id=%s\n", u.Name, u.Email, u.ID)
	return nil
}

func main() {
	cli.LoadEnvFile()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := cli.SetupLogger(nil, log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)
	if opts.backend != "" {
		cfg.DataBackend = opts.backend
	}
	if !backend.BackendType(cfg.DataBackend).IsSQL() {
		fmt.Fprintln(os.Stderr, "adduser needs a sqlite or postgres backend")
		os.Exit(2)
	}
	cfg.AMQPURL = ""

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	defer be.Close()

	if err := run(ctx, opts, be.Store, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "adduser:", err)
		be.Close()
		os.Exit(1)
	}
}
