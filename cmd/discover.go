package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcliao/companyscout/internal/model"
)

var (
	discoverProfileID    string
	discoverMaxCompanies int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover and research companies for a profile",
	Long:  "Generates search queries from the profile, discovers candidate companies, researches each in batches, scores fit, and writes a final narrative.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if discoverProfileID == "" {
			return eris.New("--profile is required")
		}
		if discoverMaxCompanies > 0 {
			cfg.Discovery.MaxCompanies = discoverMaxCompanies
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Discovery.Start(ctx, discoverProfileID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "discovery run %s\n", run.ID)

		if err := env.Discovery.Run(ctx, run); err != nil {
			return err
		}
		if run.Phase != model.DiscoveryComplete {
			return eris.Errorf("discovery ended in %s: %v", run.Phase, run.Errors)
		}

		printDiscoveryRun(os.Stdout, run)
		return nil
	},
}

func printDiscoveryRun(out io.Writer, run *model.DiscoveryRun) {
	fmt.Fprintln(out, run.Narrative)
	fmt.Fprintln(out)

	ranked := make([]model.FitAnalysis, len(run.Analyses))
	copy(ranked, run.Analyses)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Overall > ranked[j].Overall })

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPANY\tOVERALL\tCRITERIA\tCULTURE\tOPPORTUNITY\tLOCATION")
	for _, a := range ranked {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			a.CompanyName, a.Overall, a.Criteria, a.Culture, a.Opportunity, a.Location)
	}
	w.Flush()

	fmt.Fprintf(out, "\ncompanies: %d discovered, %d researched, %d analyzed; API calls: %d\n",
		len(run.Companies), run.Researched, len(run.Analyses), run.APICalls)
	if len(run.Errors) > 0 {
		fmt.Fprintf(out, "degraded steps: %d (see `companyscout runs show %s`)\n", len(run.Errors), run.ID)
	}
}

func init() {
	discoverCmd.Flags().StringVar(&discoverProfileID, "profile", "", "search profile id")
	discoverCmd.Flags().IntVar(&discoverMaxCompanies, "max-companies", 0, "override discovery.max_companies")
	rootCmd.AddCommand(discoverCmd)
}
