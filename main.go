package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mlcruz9/miguel-dev/internal/config"
	"github.com/Mlcruz9/miguel-dev/internal/content"
	"github.com/Mlcruz9/miguel-dev/internal/heatmap"
	"github.com/Mlcruz9/miguel-dev/internal/logging"
	"github.com/Mlcruz9/miguel-dev/internal/server"
	"github.com/Mlcruz9/miguel-dev/internal/store"
)

var (
	settings = config.FromEnv()
	verbose  bool
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "miguel-dev",
	Short: "Personal portfolio site",
	Long: `Serves the portfolio page: projects, toolbox, experience, a GitHub
contribution heatmap and a contact form.

Settings come from the environment (and .env); flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env may be loaded after gin read GIN_MODE.
		switch settings.GinMode {
		case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
			gin.SetMode(settings.GinMode)
		}
		level := settings.LogLevel
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, gin.Mode() == gin.DebugMode)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the portfolio content and check it",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := content.Load(settings.ContentPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d projects, %d toolbox items, %d jobs, heatmap user %q\n",
			len(p.Projects), len(p.Toolbox), len(p.Experience), p.Heatmap.Username)
		return nil
	},
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [username]",
	Short: "Fetch a contribution calendar and print a summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := ""
		if len(args) == 1 {
			username = args[0]
		} else {
			p, err := content.Load(settings.ContentPath)
			if err != nil {
				return err
			}
			username = p.Heatmap.Username
		}

		gh := heatmap.NewGitHub(settings.GitHubURL, &http.Client{Timeout: 15 * time.Second}, nil, settings.HeatmapTTL, logger)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		cal, err := gh.Calendar(ctx, username)
		if err != nil {
			return err
		}
		active := 0
		for _, d := range cal.Days {
			if d.Count > 0 {
				active++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d contributions over %d days (%d active)\n",
			username, cal.Total, len(cal.Days), active)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&settings.ContentPath, "content", settings.ContentPath, "portfolio YAML (default: embedded)")

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVarP(&settings.Port, "port", "p", settings.Port, "listen port")
		c.Flags().StringVar(&settings.DBPath, "db", settings.DBPath, "SQLite database path")
		c.Flags().StringVar(&settings.PublicDir, "public", settings.PublicDir, "directory with img/ and cv/")
		c.Flags().BoolVar(&settings.HeatmapEnable, "heatmap", settings.HeatmapEnable, "render the GitHub heatmap")
	}

	rootCmd.AddCommand(serveCmd, validateCmd, heatmapCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := content.Load(settings.ContentPath)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, settings.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	resolver := heatmap.NewResolver(func() heatmap.Renderer {
		if !settings.HeatmapEnable {
			logger.Info("heatmap disabled; activity section will link to the profile")
			return nil
		}
		return heatmap.NewGitHub(settings.GitHubURL, &http.Client{Timeout: 10 * time.Second}, st, settings.HeatmapTTL, logger)
	})

	srv, err := server.New(server.Options{
		Settings: settings,
		Content:  p,
		Store:    st,
		Heatmap:  resolver,
		Log:      logger,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, ":"+settings.Port)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
