package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mejba13/invoiceflow/internal/api"
	"github.com/mejba13/invoiceflow/internal/config"
	"github.com/mejba13/invoiceflow/internal/draftstore"
	"github.com/mejba13/invoiceflow/internal/keychain"
	"github.com/mejba13/invoiceflow/internal/session"
)

// keychainFactory allows injecting a mock keychain in tests
var keychainFactory = func() keychain.Keychain {
	return keychain.NewSystemKeychain()
}

// app bundles what a command needs to talk to the server
type app struct {
	cfg     *config.Config
	client  *api.AuthenticatedClient
	session *session.Manager
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\n\nRun 'invoiceflow init' to create the configuration file", err)
	}
	if cfg.IsInsecure() {
		log.Warn().Str("url", cfg.Server.URL).Msg("server URL is plain http; credentials are sent unencrypted")
	}

	kc := keychainFactory()
	client := api.NewAuthenticatedClient(cfg.Server.URL, kc, api.WithTimeout(cfg.Server.Timeout))
	return &app{
		cfg:     cfg,
		client:  client,
		session: session.NewManager(client, kc),
	}, nil
}

// signedIn loads the app and restores the stored session
func signedIn(cmd *cobra.Command) (*app, *api.User, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	user, err := a.session.RequireUser(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return a, user, nil
}

func openDrafts() (*draftstore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := draftstore.Open(cfg.Drafts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open drafts: %w", err)
	}
	return store, nil
}

// prompter reads answers from the command's input. Passwords are read
// without echo when input is a terminal.
type prompter struct {
	out io.Writer
	in  *bufio.Reader
	tty bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	f, isFile := in.(*os.File)
	return &prompter{
		out: cmd.OutOrStdout(),
		in:  bufio.NewReader(in),
		tty: isFile && term.IsTerminal(int(f.Fd())),
	}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label+": ")
	s, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) password(label string) (string, error) {
	if !p.tty {
		return p.line(label)
	}
	fmt.Fprint(p.out, label+": ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// confirm asks a yes/no question; anything but y or yes is a no
func confirm(cmd *cobra.Command, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	answer, err := newPrompter(cmd).line(question + " [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
	return false, nil
}

func parseAmount(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: must be a number", name, value)
	}
	return d, nil
}

// stringFlags copies changed string flags into their targets
func stringFlags(cmd *cobra.Command, targets map[string]*string) {
	for name, dst := range targets {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
}
