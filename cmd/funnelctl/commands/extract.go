package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boron/funnel-service/internal/funnel/producer"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Pull the funnel out of a model completion and print it as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, name, err := readInput(cmd, args)
			if err != nil {
				return fail(cmd.ErrOrStderr(), "cannot read input", err.Error())
			}
			v, err := producer.ExtractFunnel(string(data))
			if errors.Is(err, producer.ErrNoJSON) {
				return fail(cmd.ErrOrStderr(), name+": "+producer.WarnNoFunnel)
			}
			if err != nil {
				return fail(cmd.ErrOrStderr(), name+": "+producer.WarnMalformedJSON, err.Error())
			}
			res := schema.Validate(v)
			if !res.OK() {
				return fail(cmd.ErrOrStderr(), fmt.Sprintf("%s: %d schema issue(s)", name, len(res.Issues)), issueLines(res.Issues)...)
			}
			out, err := json.MarshalIndent(res.Document, "", "  ")
			if err != nil {
				return fail(cmd.ErrOrStderr(), "encode funnel", err.Error())
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
