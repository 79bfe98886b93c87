// Command sellerconsole serves the seller console and runs scripted demos of
// its optimistic updates.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/sellerconsole/internal/config"
	"github.com/vango-dev/sellerconsole/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┬  ┬  ┌─┐┬─┐  ┌─┐┌─┐┌┐┌┌─┐┌─┐┬  ┌─┐
  └─┐├┤ │  │  ├┤ ├┬┘  │  │ ││││└─┐│ ││  ├┤
  └─┘└─┘┴─┘┴─┘└─┘┴└─  └─┘└─┘┘└┘└─┘└─┘┴─┘└─┘
`

var configPath string

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sellerconsole",
		Short: "Optimistic CRM seller console",
		Long: `Seller console for triaging leads and converting them into
opportunities.

Edits are applied to the screen immediately and confirmed by the backend
in the background. Failed confirmations roll back and raise a toast with
a retry action.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to sellerconsole.json (default: ./sellerconsole.json if present)")

	cmd.AddCommand(
		serveCmd(),
		demoCmd(),
		versionCmd(),
	)
	return cmd
}

// loadConfig reads --config, or the working directory's config file when
// the flag is unset.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.LoadOrDefault(".")
}

func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

func badFlag(flag, format string, args ...any) error {
	return errors.New(errors.CodeBadFlag).
		WithDetailf("--%s: %s", flag, fmt.Sprintf(format, args...))
}
