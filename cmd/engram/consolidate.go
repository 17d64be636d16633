package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandevgo/engram/pkg/log"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run one consolidation pass and exit",
	Long:  `Extracts memories from pending messages, applies decay and reinforcement, maintains the similarity graph, and mines patterns, insights, gaps, and questions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		deps := NewDependencies(ctx)
		defer deps.Close(ctx)

		report, err := deps.Consolidator.Run(ctx)
		if err != nil {
			return err
		}

		logger := log.FromCtx(ctx)
		logger.Info().Msg("consolidation pass complete")

		fmt.Printf("memories created:      %d\n", report.MemoriesCreated)
		fmt.Printf("commitments created:   %d\n", report.CommitmentsCreated)
		fmt.Printf("reminders created:     %d\n", report.RemindersCreated)
		fmt.Printf("beliefs created:       %d (reinforced %d)\n", report.BeliefsCreated, report.BeliefsReinforced)
		fmt.Printf("edges created:         %d (reinforced %d, pruned %d)\n", report.EdgesCreated, report.EdgesReinforced, report.EdgesPruned)
		fmt.Printf("patterns mined:        %d\n", report.PatternsCreated)
		fmt.Printf("insights mined:        %d\n", report.InsightsCreated)
		fmt.Printf("memories decayed:      %d (dormant %d)\n", report.MemoriesDecayed, report.MemoriesDormant)
		fmt.Printf("duration:              %dms\n", report.DurationMs)
		for _, e := range report.Errors {
			fmt.Printf("error: %s\n", e)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consolidateCmd)
}
