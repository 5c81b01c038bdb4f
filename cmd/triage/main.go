// triage is a terminal inbox for GitHub notifications. It mirrors the
// notification feed into a local database, ranks every thread with the
// rules of a TOML file and lets the user open, boost and dismiss them.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/pflag"

	"github.com/nhle/notification-triage/internal/app"
	"github.com/nhle/notification-triage/internal/credential"
	"github.com/nhle/notification-triage/internal/logging"
	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/source"
	"github.com/nhle/notification-triage/internal/source/github"
	"github.com/nhle/notification-triage/internal/store"
	appsync "github.com/nhle/notification-triage/internal/sync"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath string
		debug      bool
		login      bool
		logout     bool
	)

	flagSet := pflag.NewFlagSet("triage", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML configuration file")
	flagSet.String("base-url", "", "GitHub API base URL")
	flagSet.String("db", "", "path to the notification database")
	flagSet.String("rules", "", "path to the scoring rule file")
	flagSet.String("log-file", "", "path to the log file")
	flagSet.BoolVar(&debug, "debug", false, "log at debug level")
	flagSet.BoolVar(&login, "login", false, "store a GitHub token in the system keyring and exit")
	flagSet.BoolVar(&logout, "logout", false, "remove the stored GitHub token and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	switch {
	case login:
		return runLogin()
	case logout:
		if err := credential.Delete(credential.TokenKey); err != nil {
			return err
		}
		fmt.Println("GitHub token removed from the keyring.")
		return nil
	}

	cfg, err := model.LoadConfig(configPath, flagSet)
	if err != nil {
		return err
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	logger, closeLog, err := logging.Open(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closeLog()

	token, err := resolveToken(cfg, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	client := github.NewClient(cfg.GitHub.BaseURL, token, cfg.GitHub.Timeout(), logger)
	svc := appsync.NewService(client, st, cfg.Rules.Path, logger)

	logger.Info("starting",
		"base_url", cfg.GitHub.BaseURL,
		"db", cfg.Store.Path,
		"rules", cfg.Rules.Path,
	)

	m := app.New(svc, app.Options{
		RefreshInterval: cfg.Sync.RefreshInterval(),
		RedrawInterval:  cfg.Sync.RedrawInterval(),
		Logger:          logger,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// resolveToken prefers GH_TOKEN or the config file, then the keyring.
func resolveToken(cfg *model.AppConfig, logger *slog.Logger) (string, error) {
	if cfg.GitHub.Token != "" {
		return cfg.GitHub.Token, nil
	}

	token, err := credential.Get(credential.TokenKey)
	switch {
	case errors.Is(err, credential.ErrNotFound):
	case err != nil:
		logger.Warn("keyring unavailable", "error", err)
	case token != "":
		return token, nil
	}

	return "", fmt.Errorf("%w (set it or run triage --login)", source.ErrMissingToken)
}

func runLogin() error {
	var token string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub token").
				Description("A personal access token with the notifications scope").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	if err := credential.Set(credential.TokenKey, token); err != nil {
		return err
	}
	fmt.Println("GitHub token stored in the keyring.")
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `triage: rank and triage GitHub notifications in the terminal.

The token is read from GH_TOKEN, the config file or the system keyring
(see --login). Scoring rules live in a TOML file, one table per rule:

  [me]
  rule = "author"   # author, repo, title, org or reason
  param = "octocat"
  score = 80

Usage:
  triage [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
