package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <project-id> <raw-id>",
	Short: "Resolve a raw task identifier and print the resolution record",
	Long: `Run the identifier resolution chain against a project and print the
structured record of which strategy matched. Useful when diagnosing why a
client reference does or does not hit the row you expect.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		task, res, err := a.svc.Get(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		out := struct {
			RawID      string `json:"rawId"`
			MatchedID  string `json:"matchedId"`
			MatchedVia string `json:"matchedVia"`
			Text       string `json:"text"`
			Origin     string `json:"origin"`
			SourceID   string `json:"sourceId,omitempty"`
		}{
			RawID:      res.RawID,
			MatchedID:  res.MatchedID,
			MatchedVia: string(res.MatchedVia),
			Text:       task.Text,
			Origin:     string(task.Origin),
		}
		if task.SourceID != nil {
			out.SourceID = *task.SourceID
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
