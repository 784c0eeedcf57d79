package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/widget"
)

const usage = `usage: widgetctl <command> [flags]

commands:
  bootstrap  run the widget bootstrap for an organization and print the resulting screen
  auth       create a contact session and store its token
  chat       send one message in a new conversation using the stored session
  logout     forget the stored session token
`

func main() {
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "bootstrap":
		err = runBootstrap(ctx, cfg.Widget, args)
	case "auth":
		err = runAuth(ctx, cfg.Widget, args)
	case "chat":
		err = runChat(ctx, cfg.Widget, args)
	case "logout":
		err = runLogout(cfg.Widget, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

type commonFlags struct {
	org      string
	server   string
	tokenDir string
	verbose  bool
}

func newFlagSet(name string, cfg config.WidgetConfig) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{}
	fs.StringVar(&c.org, "org", "", "organization id")
	fs.StringVar(&c.server, "server", cfg.ServerURL, "server base URL")
	fs.StringVar(&c.tokenDir, "token-dir", cfg.TokenDir, "directory holding session tokens")
	fs.BoolVar(&c.verbose, "v", false, "log every bootstrap step")
	return fs, c
}

func (c *commonFlags) apply() {
	if c.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runBootstrap(ctx context.Context, cfg config.WidgetConfig, args []string) error {
	fs, c := newFlagSet("bootstrap", cfg)
	_ = fs.Parse(args)
	c.apply()

	machine := widget.NewMachine(
		widget.NewClient(c.server),
		widget.NewFileTokenStore(c.tokenDir),
		widget.WithPollInterval(cfg.PollInterval),
		widget.WithObserver(func(s widget.State) {
			log.Debug().Str("step", string(s.Step)).Str("message", s.LoadingMessage).Msg("Bootstrap progress")
		}),
	)

	state, err := machine.Run(ctx, c.org)
	if err != nil {
		return fmt.Errorf("bootstrap interrupted at %s: %w", state.Step, err)
	}
	return printJSON(state)
}

func runAuth(ctx context.Context, cfg config.WidgetConfig, args []string) error {
	fs, c := newFlagSet("auth", cfg)
	name := fs.String("name", "", "visitor name")
	email := fs.String("email", "", "visitor email")
	_ = fs.Parse(args)
	c.apply()

	if c.org == "" {
		return domain.ErrMissingOrganization
	}
	if *name == "" || *email == "" {
		return errors.New("-name and -email are required")
	}

	client := widget.NewClient(c.server)
	session, err := client.CreateContactSession(ctx, domain.ContactSessionCreate{
		OrganizationID: c.org,
		Name:           *name,
		Email:          *email,
		Metadata: domain.SessionMetadata{
			UserAgent: "widgetctl",
			Platform:  runtime.GOOS,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create contact session: %w", err)
	}

	if err := widget.NewFileTokenStore(c.tokenDir).Save(c.org, session.ID); err != nil {
		return err
	}

	log.Info().
		Str("organization_id", c.org).
		Str("contact_session_id", session.ID.String()).
		Time("expires_at", session.ExpiresAt).
		Msg("Contact session stored")
	return nil
}

func runChat(ctx context.Context, cfg config.WidgetConfig, args []string) error {
	fs, c := newFlagSet("chat", cfg)
	message := fs.String("message", "", "message to send")
	_ = fs.Parse(args)
	c.apply()

	if c.org == "" {
		return domain.ErrMissingOrganization
	}
	if *message == "" {
		return errors.New("-message is required")
	}

	sessionID, ok, err := widget.NewFileTokenStore(c.tokenDir).Load(c.org)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no stored session, run widgetctl auth first")
	}

	client := widget.NewClient(c.server)
	conversation, err := client.StartConversation(ctx, sessionID, c.org)
	if err != nil {
		return fmt.Errorf("failed to start conversation: %w", err)
	}

	result, err := client.SendMessage(ctx, sessionID, conversation.ID, *message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return printJSON(result)
}

func runLogout(cfg config.WidgetConfig, args []string) error {
	fs, c := newFlagSet("logout", cfg)
	_ = fs.Parse(args)

	if c.org == "" {
		return domain.ErrMissingOrganization
	}
	return widget.NewFileTokenStore(c.tokenDir).Delete(c.org)
}
