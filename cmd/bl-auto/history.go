package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryan-qiu/bl-auto/internal/config"
	"github.com/bryan-qiu/bl-auto/internal/history"
)

var (
	flagHistoryLimit int
	flagHistoryRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs from the history database",
	RunE:  showHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&flagHistoryRun, "run", "", "show per-account results for one run id")
	rootCmd.AddCommand(historyCmd)
}

func showHistory(cmd *cobra.Command, args []string) error {
	env, err := config.LoadEnv(cmd.Context())
	if err != nil {
		return err
	}
	if env.HistoryDB == "" {
		return fmt.Errorf("no history database configured; set HISTORY_DB")
	}

	store, err := history.Open(env.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if flagHistoryRun != "" {
		results, err := store.ResultsForRun(cmd.Context(), flagHistoryRun)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "USERNAME\tOUTCOME\tREASON\tARTIFACT\tFINISHED")
		for _, res := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				res.Username, res.Outcome, res.Reason, res.Artifact,
				res.FinishedAt.Format(time.RFC3339))
		}
		return nil
	}

	runs, err := store.ListRuns(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "RUN\tSTARTED\tMANUAL\tDATE\tHOUR\tACCOUNTS\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%d\t%d\t%d\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Manual,
			run.ReserveDate, run.StartHour, run.Accounts, run.Failed)
	}
	return nil
}
