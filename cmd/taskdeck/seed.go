package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <project-id>",
	Short: "Clone canonical template tasks into a project",
	Long: `Clone every canonical template item not already represented in the
project into a new task row. Safe to run repeatedly: templates already
seeded are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		inserted, err := a.svc.Seed(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d task(s) into project %s\n", inserted, args[0])
		return nil
	},
}
