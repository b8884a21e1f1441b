package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"toggl-connector/internal/app"
	"toggl-connector/internal/config"
	"toggl-connector/internal/domain"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "toggl-connector",
		Short:         "Sync projects, tasks and time entries between the local timesheet store and Toggl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(configureCmd())
	root.AddCommand(pushCmd())
	root.AddCommand(archiveCmd())
	root.AddCommand(pullCmd())
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads .env and config, builds the logger and wires the app.
func setup() (*app.App, *slog.Logger, config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, cfg, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.Log.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	application, err := app.New(logger, cfg)
	if err != nil {
		return nil, nil, cfg, err
	}
	return application, logger, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func configureCmd() *cobra.Command {
	var (
		name           string
		token          string
		workspaceID    int64
		tier           string
		defaultProject uint
		skipProjects   string
	)
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Create or update the connector configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer application.Close()

			conn := &domain.Connector{
				Name:             name,
				APIToken:         token,
				WorkspaceID:      workspaceID,
				DefaultProjectID: defaultProject,
				Tier:             domain.Tier(tier),
			}
			if skipProjects != "" {
				for _, part := range strings.Split(skipProjects, ",") {
					id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
					if err != nil {
						return fmt.Errorf("invalid --skip-projects value %q", part)
					}
					conn.SkipProjectIDs = append(conn.SkipProjectIDs, uint(id))
				}
			}

			ctx, stop := signalContext()
			defer stop()
			if err := application.Configure(ctx, conn); err != nil {
				return err
			}
			logger.Info("connector configured", slog.String("name", name), slog.Int64("workspace", workspaceID))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Toggl Connector", "connector display name")
	cmd.Flags().StringVar(&token, "token", "", "Toggl API token of a workspace admin")
	cmd.Flags().Int64Var(&workspaceID, "workspace", 0, "Toggl workspace id")
	cmd.Flags().StringVar(&tier, "tier", string(domain.TierPremium), "subscription tier: free or premium")
	cmd.Flags().UintVar(&defaultProject, "default-project", 0, "local project for entries without a Toggl project")
	cmd.Flags().StringVar(&skipProjects, "skip-projects", "", "comma-separated local project ids to exclude from sync")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func pushCmd() *cobra.Command {
	var syncAll bool
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push projects and tasks to Toggl",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signalContext()
			defer stop()
			if err := application.Push(ctx, syncAll); err != nil {
				return err
			}
			logger.Info("push completed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&syncAll, "all", false, "push everything instead of an incremental run")
	return cmd
}

func archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Archive Toggl projects and tasks that are completed locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signalContext()
			defer stop()
			if err := application.Archive(ctx); err != nil {
				return err
			}
			logger.Info("archive completed")
			return nil
		},
	}
}

func pullCmd() *cobra.Command {
	var (
		userID uint
		from   string
		to     string
		update bool
	)
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Import time entries from Toggl into local timesheet lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, _, err := setup()
			if err != nil {
				return err
			}
			defer application.Close()

			today := time.Now().UTC().Format("2006-01-02")
			if from == "" {
				from = today
			}
			if to == "" {
				to = today
			}

			ctx, stop := signalContext()
			defer stop()
			lines, err := application.Pull(ctx, userID, from, to, update)
			if err != nil {
				return err
			}
			logger.Info("pull completed",
				slog.String("from", from),
				slog.String("to", to),
				slog.Int("lines", len(lines)))
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "local user id whose entries to import")
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&update, "update", false, "overwrite lines already imported")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger server with a periodic push and archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, cfg, err := setup()
			if err != nil {
				return err
			}
			defer application.Close()

			if addr == "" {
				addr = cfg.HTTP.Addr
			}

			ctx, stop := signalContext()
			defer stop()

			srv := application.HTTPServer(addr)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			var tick <-chan time.Time
			if interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				tick = ticker.C
				logger.Info("periodic sync enabled", slog.Duration("interval", interval))
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("shutting down")
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				case err := <-errCh:
					return err
				case <-tick:
					if err := application.Push(ctx, false); err != nil {
						logger.Error("periodic push failed", slog.String("error", err.Error()))
					}
					if err := application.Archive(ctx); err != nil {
						logger.Error("periodic archive failed", slog.String("error", err.Error()))
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from HTTP_ADDR)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "run push+archive on this interval (0 disables)")
	return cmd
}
