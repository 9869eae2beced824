package main

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	client "github.com/eldtechnologies/charette/clients/go/charette"
	"github.com/eldtechnologies/charette/internal/charette"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/session"
)

var (
	serverURL string
	demoMode  bool
	verbose   bool
	version   = "dev"

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "charette",
	Short: "Run and follow charette sessions from the terminal",
	Long: `A terminal client for charettes: facilitated, multi-phase group sessions
with a shared main room and breakout rooms.

Quick Start:
  charette create --title "Downtown Revitalization"   # Start a charette
  charette watch <id> --user Alice                      # Join and chat live
  charette phase <id> next --role project_manager       # Move to the next phase
  charette export <id> --format yaml                    # Archive the transcript

Use --demo (or CHARETTE_DEMO=true) to run against an in-process store
instead of a server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger = logger.Level(zerolog.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("CHARETTE_URL")
	if defaultURL == "" {
		defaultURL = client.DefaultURL
	}
	defaultDemo, _ := strconv.ParseBool(os.Getenv("CHARETTE_DEMO"))

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultURL, "Charette server URL (env CHARETTE_URL)")
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", defaultDemo, "Use an in-process store instead of a server (env CHARETTE_DEMO)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

var demoService = sync.OnceValue(func() *charette.Service {
	return charette.NewMemoryService(logger)
})

// connect returns the session store commands talk to, acting with role.
func connect(role models.Role) session.Remote {
	if demoMode {
		return demoService()
	}
	c := client.NewClient(serverURL)
	c.Role = role
	return c
}

// parseRole validates the --role flag.
func parseRole(s string) (models.Role, error) {
	role, err := models.ParseRole(s)
	if err != nil {
		return "", fmt.Errorf("%w (use participant, analyst or project_manager)", err)
	}
	return role, nil
}
