package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"academydesk/internal/app"
	"academydesk/internal/config"
	"academydesk/internal/views"
)

var rootCmd = &cobra.Command{
	Use:   "academy",
	Short: "Academy admin console",
	Long: `academy manages a tutoring academy from the terminal: students and their
fees, class schedules, staff payroll, admission leads, timetables, exams and
marks, spending, and shared files.

Every command talks to the academy API (api.base_url in academy.yml, or
ACADEMY_BASE_URL). Sign in once with 'academy login'; the session is kept in
.academy/console.db inside the workspace. 'academy serve-dev' starts a local
in-memory API for trying things out.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String(config.KeyBaseURL, "", "academy API base URL")
	flags.Duration(config.KeyTimeout, 0, "request timeout")
	flags.String(config.KeyLogLevel, "", "log level (debug, info, warn, error)")
	flags.String(config.KeyLogFormat, "", "log format (console, json)")
	for _, name := range []string{"workspace", "json", config.KeyBaseURL, config.KeyTimeout, config.KeyLogLevel, config.KeyLogFormat} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(accountCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(studentsCmd())
	rootCmd.AddCommand(feesCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(employeesCmd())
	rootCmd.AddCommand(payrollCmd())
	rootCmd.AddCommand(leadsCmd())
	rootCmd.AddCommand(timetableCmd())
	rootCmd.AddCommand(examsCmd())
	rootCmd.AddCommand(marksCmd())
	rootCmd.AddCommand(expendituresCmd())
	rootCmd.AddCommand(filesCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveDevCmd())
}

// withApp opens the console for the workspace, runs fn and prints the
// notice the last settled action left behind.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Viper:     viper.GetViper(),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	if err := fn(ctx, a); err != nil {
		return err
	}
	if !viper.GetBool("json") {
		views.RenderNotice(cmd.ErrOrStderr(), a.Notice())
	}
	return nil
}

// printJSONOrTable prints v as JSON with --json, otherwise runs render.
func printJSONOrTable(cmd *cobra.Command, v any, render func(io.Writer)) error {
	if viper.GetBool("json") {
		return printJSON(cmd.OutOrStdout(), v)
	}
	render(cmd.OutOrStdout())
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirm asks a yes/no question unless --yes was given.
func confirm(cmd *cobra.Command, yes bool, prompt string) (bool, error) {
	if yes {
		return true, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
	return false, nil
}

// readSecret reads one line from stdin when a flag was left empty.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// screen returns UI state with the common --month/--search/--page flags.
func screen(a *app.App, month, search string, page int) views.UI {
	ui := a.UI()
	ui.Month = month
	ui.Search = search
	ui.Page = page
	return ui
}
