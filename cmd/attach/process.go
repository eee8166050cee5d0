package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	dombatch "github.com/kailas-cloud/attachments/internal/domain/batch"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	processuc "github.com/kailas-cloud/attachments/internal/usecase/process"
)

type processFlags struct {
	adapter string
	prompt  string
}

func newProcessCmd(root *rootOptions) *cobra.Command {
	f := &processFlags{}
	cmd := &cobra.Command{
		Use:   "process <identifier>...",
		Short: "Run identifiers through the automatic pipeline",
		Long: `process loads every identifier, presents it as text, images and metadata,
and prints the combined result. Items that fail are reported inline and do
not stop the others. With --adapter the combined result is printed as the
named provider's message shape (openai_chat, claude, gemini).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := root.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			results := eng.Process.Process(cmd.Context(), args)
			out := cmd.OutOrStdout()

			if f.adapter != "" {
				output, err := eng.Process.Adapt(cmd.Context(), results, f.adapter, f.prompt)
				if err != nil {
					return err
				}
				return writeJSON(out, output)
			}
			if root.jsonOut {
				return writeJSON(out, resultsJSON(results))
			}
			return writeCombined(out, results)
		},
	}
	cmd.Flags().StringVar(&f.adapter, "adapter", "", "Adapt the combined result: openai_chat, claude, gemini")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Prompt text placed before the content when adapting")
	return cmd
}

type resultJSON struct {
	Identifier string         `json:"identifier"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Text       string         `json:"text"`
	Images     int            `json:"images"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func resultsJSON(results []dombatch.Result) []resultJSON {
	out := make([]resultJSON, len(results))
	for i, r := range results {
		item := resultJSON{Identifier: r.ID(), Status: string(r.Status())}
		if err := r.Err(); err != nil {
			item.Error = err.Error()
		}
		if !r.Value().IsZero() {
			u := collection.Merge(r.Value())
			item.Text = u.Text()
			item.Images = u.MediaCount()
			item.Metadata = u.Metadata()
		}
		out[i] = item
	}
	return out
}

func writeCombined(w io.Writer, results []dombatch.Result) error {
	return writeUnit(w, processuc.Combine(results))
}

func writeUnit(w io.Writer, u *unit.Unit) error {
	if _, err := fmt.Fprintln(w, u.Text()); err != nil {
		return err
	}
	if n := u.MediaCount(); n > 0 {
		if _, err := fmt.Fprintf(w, "\n[%d image(s) extracted]\n", n); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
