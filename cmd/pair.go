package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/stats"
)

var (
	pairUser1 string
	pairUser2 string
	pairID    string
	pairJSON  bool
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Manage pairs",
}

var pairCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a pair and print its id",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.CreatePair(cmd.Context(), model.Pair{User1ID: pairUser1, User2ID: pairUser2})
		if err != nil {
			return err
		}
		if pairJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return err
	},
}

var pairShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a pair",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.GetPair(cmd.Context(), pairID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var pairStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show each member's average score and the pickiest eater",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.Snapshot(cmd.Context(), pairID)
		if err != nil {
			return err
		}
		ps, err := stats.Compute(snap)
		if err != nil {
			return err
		}
		if pairJSON {
			return printJSON(cmd.OutOrStdout(), ps)
		}

		rows := [][]string{{"USER", "AVERAGE", "RATINGS", "PICKIEST"}}
		for _, m := range ps.Members {
			rows = append(rows, []string{
				m.UserID,
				formatScore(m.AverageScore),
				fmt.Sprint(m.Ratings),
				yesNo(m.UserID == ps.Pickiest),
			})
		}
		return table(cmd.OutOrStdout(), rows)
	},
}

func init() {
	pairCreateCmd.Flags().StringVar(&pairUser1, "user1", "", "first member's user id (required)")
	pairCreateCmd.Flags().StringVar(&pairUser2, "user2", "", "second member's user id")
	pairCreateCmd.Flags().BoolVar(&pairJSON, "json", false, "print the created pair as JSON")
	_ = pairCreateCmd.MarkFlagRequired("user1")

	pairShowCmd.Flags().StringVar(&pairID, "pair", "", "pair id (required)")
	_ = pairShowCmd.MarkFlagRequired("pair")

	pairStatsCmd.Flags().StringVar(&pairID, "pair", "", "pair id (required)")
	pairStatsCmd.Flags().BoolVar(&pairJSON, "json", false, "print stats as JSON")
	_ = pairStatsCmd.MarkFlagRequired("pair")

	pairCmd.AddCommand(pairCreateCmd, pairShowCmd, pairStatsCmd)
	rootCmd.AddCommand(pairCmd)
}
