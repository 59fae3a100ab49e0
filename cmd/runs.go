package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcliao/companyscout/internal/model"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect discovery runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent discovery runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListDiscoveryRuns(ctx, runsLimit)
		if err != nil {
			return err
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func formatRunsList(out io.Writer, runs []model.DiscoveryRun) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPHASE\tCOMPANIES\tRESEARCHED\tERRORS\tUPDATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Phase, len(r.Companies), r.Researched, len(r.Errors),
			r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full state of a discovery run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetDiscoveryRun(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "load run %s", args[0])
		}

		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode run")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
