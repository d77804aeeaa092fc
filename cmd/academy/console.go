package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"academydesk/internal/app"
	"academydesk/internal/config"
	"academydesk/internal/devapi"
	"academydesk/internal/domain"
	"academydesk/internal/observability"
	"academydesk/internal/views"
)

func loginCmd() *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as the academy admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				p, err := readSecret(cmd, "Password: ")
				if err != nil {
					return err
				}
				creds.Password = p
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Runner(ctx)(a.Actions.Login(ctx, creds)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", a.Auth().Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "admin password (prompted when empty)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Actions.Logout(ctx, a.Store); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Auth().LoggedIn {
					return errors.New("not signed in; run 'academy login'")
				}
				p, err := a.Session.Profile(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd, p, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s)\n", p.Email, p.UserID)
					if p.ExpiresAt != nil {
						fmt.Fprintf(w, "session expires %s\n", p.ExpiresAt.In(a.Config.Location()).Format(time.RFC1123))
					}
				})
			})
		},
	}
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage the admin login"}
	var ch domain.CredentialChange
	change := &cobra.Command{
		Use:   "change-credentials",
		Short: "Change the admin email or password; signs out on success",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ch.CurrentPassword == "" {
				p, err := readSecret(cmd, "Current password: ")
				if err != nil {
					return err
				}
				ch.CurrentPassword = p
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.ChangeCredentials(ctx, ch))
			})
		},
	}
	change.Flags().StringVar(&ch.CurrentPassword, "current-password", "", "current password (prompted when empty)")
	change.Flags().StringVar(&ch.NewEmail, "new-email", "", "new admin email")
	change.Flags().StringVar(&ch.NewPassword, "new-password", "", "new admin password")
	cmd.AddCommand(change)
	return cmd
}

func dashboardCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the academy overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx,
					a.Actions.FetchStudents(),
					a.Actions.FetchPayments(""),
					a.Actions.FetchEmployees(),
					a.Actions.FetchLeads(""),
				); err != nil {
					return err
				}
				v := a.Views.Dashboard(a.State(), screen(a, month, "", 1), a.Quote(ctx))
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderDashboard(w, v) })
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	return cmd
}

func quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote",
		Short: "Print a motivational quote, without repeats until all were shown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				q := a.Quote(ctx)
				return printJSONOrTable(cmd, map[string]string{"quote": q}, func(w io.Writer) { fmt.Fprintln(w, q) })
			})
		},
	}
}

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "files", Short: "Share documents and lecture material"}
	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.RunAll(ctx, a.Actions.FetchFiles(category)); err != nil {
					return err
				}
				ui := a.UI()
				ui.Category = category
				v := a.Views.Files(a.State(), ui)
				return printJSONOrTable(cmd, v, func(w io.Writer) { views.RenderFiles(w, v) })
			})
		},
	}
	list.Flags().StringVar(&category, "category", "", "employee, important, lecture or profile")
	cmd.AddCommand(list)

	var uploadCategory string
	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.UploadFile(uploadCategory, filepath.Base(args[0]), f))
			})
		},
	}
	upload.Flags().StringVar(&uploadCategory, "category", "lecture", "employee, important, lecture or profile")
	cmd.AddCommand(upload)

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, yes, "Delete file "+args[0]+"?")
			if err != nil || !ok {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Runner(ctx)(a.Actions.DeleteFile(args[0]))
			})
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	cmd.AddCommand(del)
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Inspect the request journal"}
	var n int
	var failures bool
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest API calls, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := a.Journal.Tail(ctx, n, failures)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd, entries, func(w io.Writer) { views.RenderJournal(w, entries) })
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of entries")
	tail.Flags().BoolVar(&failures, "failures", false, "only failed calls")
	cmd.AddCommand(tail)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit console configuration",
		Long:  "Settings come from academy.yml in the workspace, then .env, then ACADEMY_* variables, then flags.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return printJSON(cmd.OutOrStdout(), a.Config)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := resolveConfig()
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	})
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default academy.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist an override such as base-url in the workspace .env",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			key := config.EnvKey(args[0])
			if err := config.SetEnvValue(config.DotEnvPath(workspace), key, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s=%s in %s\n", key, args[1], config.DotEnvPath(workspace))
			return nil
		},
	})
	return cmd
}

// resolveConfig layers configuration the same way app.Open does.
func resolveConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	if err := config.LoadDotEnv(workspace); err != nil {
		return nil, err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Overlay(viper.GetViper())
}

func serveDevCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Run an in-memory academy API for local use",
		Long: `serve-dev starts a development backend that keeps everything in memory.
It speaks the same API the console uses, so 'academy login' against it works
with the dev.admin_email and dev.admin_password from academy.yml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			logger, err := observability.SetupLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			data, err := devapi.NewMemory(cfg.Dev.AdminEmail, cfg.Dev.AdminPassword)
			if err != nil {
				return err
			}
			if seed || (cfg.Dev.Seed && !cmd.Flags().Changed("seed")) {
				devapi.Seed(data, time.Now())
			}
			handler, err := devapi.New(devapi.Config{
				Data:     data,
				Auth:     devapi.AuthConfig{JWTSecret: cfg.Dev.JWTSecret, TokenTTL: cfg.Dev.TokenTTL},
				Logger:   logger,
				Registry: prometheus.NewRegistry(),
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Dev.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving development API",
				zap.String("addr", "http://"+cfg.Dev.Addr+"/api"),
				zap.String("openapi", "/api/openapi.json"),
				zap.String("metrics", "/metrics"))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String(config.KeyDevAddr, "", "listen address (default from dev.addr)")
	flags.String(config.KeyDevSecret, "", "JWT signing secret (default from dev.jwt_secret)")
	flags.BoolVar(&seed, "seed", false, "load sample data")
	_ = viper.BindPFlag(config.KeyDevAddr, flags.Lookup(config.KeyDevAddr))
	_ = viper.BindPFlag(config.KeyDevSecret, flags.Lookup(config.KeyDevSecret))
	return cmd
}
