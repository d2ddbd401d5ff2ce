package commands

import (
	"github.com/boron/funnel-service/internal/funnel/rules"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a funnel against the block schemas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, name, err := load(cmd, args, opts)
			if err != nil {
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "✓ %s: %q is valid (%d blocks)\n", name, doc.Name, len(doc.Blocks))
			return nil
		},
	}
}

func newLintCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint [file]",
		Short: "Validate a funnel and check it against best-practice rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, name, err := load(cmd, args, opts)
			if err != nil {
				return err
			}
			rep := rules.Lint(doc)
			out := cmd.OutOrStdout()
			for _, e := range rep.Errors {
				red.Fprintf(out, "error: %s\n", e)
			}
			for _, w := range rep.Warnings {
				yellow.Fprintf(out, "warning: %s\n", w)
			}
			if !rep.Valid {
				return fail(cmd.ErrOrStderr(), name+": best-practice errors found")
			}
			if strict && len(rep.Warnings) > 0 {
				return fail(cmd.ErrOrStderr(), name+": warnings are errors in strict mode")
			}
			green.Fprintf(out, "✓ %s: %d warning(s), 0 errors\n", name, len(rep.Warnings))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as failures")
	return cmd
}
