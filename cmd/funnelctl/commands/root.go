// Package commands implements funnelctl, an offline tool for checking,
// linting and rendering funnel documents.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// errReported is returned after a command already printed its failure.
var errReported = errors.New("funnelctl: failed")

type options struct {
	format string
}

// NewRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of package globals.
func NewRootCmd(version, commit string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "funnelctl",
		Short: "Validate, lint and render funnel documents",
		Long: `funnelctl checks funnel documents offline.

Inputs are JSON or YAML files; pass "-" or no file to read stdin.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "auto", "Input format: auto, json or yaml")

	root.AddCommand(
		newValidateCmd(opts),
		newLintCmd(opts),
		newRenderCmd(opts),
		newExtractCmd(),
	)
	return root
}

func fail(w io.Writer, title string, lines ...string) error {
	red.Fprintf(w, "✗ %s\n", title)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
	return errReported
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
