package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/boron/funnel-service/internal/funnel/render"
	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	var (
		asJSON bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a funnel to an HTML page (or JSON nodes)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, name, err := load(cmd, args, opts)
			if err != nil {
				return err
			}
			var out []byte
			nodes := render.Default().Render(doc)
			if asJSON {
				out, err = json.MarshalIndent(nodes, "", "  ")
				out = append(out, '\n')
			} else {
				out, err = render.Default().RenderPage(doc)
			}
			if err != nil {
				return fail(cmd.ErrOrStderr(), name+": render failed", err.Error())
			}
			for _, n := range nodes {
				if n.Placeholder {
					yellow.Fprintf(cmd.ErrOrStderr(), "warning: block %s (%s) rendered as placeholder\n", n.BlockID, n.Tag)
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fail(cmd.ErrOrStderr(), "cannot write output", err.Error())
				}
				defer f.Close()
				w = f
			}
			if _, err := w.Write(out); err != nil {
				return fail(cmd.ErrOrStderr(), "cannot write output", err.Error())
			}
			if output != "" && output != "-" {
				cyan.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rendered nodes as JSON instead of a page")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
