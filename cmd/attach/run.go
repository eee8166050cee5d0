package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/pipeline"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	f := &processFlags{}
	cmd := &cobra.Command{
		Use:   "run <pipeline> <identifier>",
		Short: "Run an explicit pipeline expression over one identifier",
		Long: `run composes verbs with "|" (sequence) and "+" (additive, binds tighter):

  attach run 'load.csv | modify.limit | present.markdown + present.metadata' 'data.csv[limit:5]'

A bare stage name such as "load" dispatches every verb of that stage.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := root.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			step, err := pipeline.Parse(args[0])
			if err != nil {
				return err
			}
			p, err := pipeline.New(eng.Dispatcher, step)
			if err != nil {
				return err
			}
			if f.adapter != "" {
				p = p.WithAdapter(f.adapter, f.prompt)
			}

			res, err := p.Process(cmd.Context(), collection.Single(unit.New(args[1])))
			if err != nil && !errors.Is(err, domain.ErrHandlerFailure) {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
			out := cmd.OutOrStdout()
			if res.Output != nil {
				return writeJSON(out, res.Output)
			}
			u := collection.Merge(res.Value)
			if root.jsonOut {
				return writeJSON(out, map[string]any{
					"text":     u.Text(),
					"images":   u.MediaCount(),
					"metadata": u.Metadata(),
					"trail":    u.Trail(),
				})
			}
			return writeUnit(out, u)
		},
	}
	cmd.Flags().StringVar(&f.adapter, "adapter", "", "Adapt the result: openai_chat, claude, gemini")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Prompt text placed before the content when adapting")
	return cmd
}
