package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcliao/companyscout/internal/model"
)

var researchProfileID string

var researchCmd = &cobra.Command{
	Use:   "research <company-name>",
	Short: "Research a single company",
	Long:  "Searches each signal category, finds contacts, scores the company, and stores the dossier.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if researchProfileID == "" {
			return eris.New("--profile is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Research.Start(ctx, researchProfileID, args[0])
		if err != nil {
			return err
		}
		if err := env.Research.Run(ctx, run); err != nil {
			return err
		}
		if run.Phase != model.ResearchComplete {
			return eris.Errorf("research ended in %s: %v", run.Phase, run.Errors)
		}

		printResearchRun(os.Stdout, run)
		return nil
	},
}

func printResearchRun(out io.Writer, run *model.ResearchRun) {
	fmt.Fprintf(out, "%s: score %d/10\n\n", run.CompanyName, run.Score)
	if run.Summary != "" {
		fmt.Fprintln(out, run.Summary)
		fmt.Fprintln(out)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tSIGNALS\tSEARCHES")
	for _, cat := range model.SignalCategories {
		st, ok := run.Categories[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", cat, len(run.SignalsFor(cat)), st.Iteration)
	}
	w.Flush()

	if run.URLs.Careers.URL != "" {
		fmt.Fprintf(out, "\nCareers: %s\n", run.URLs.Careers.URL)
	}
	if run.URLs.Culture.URL != "" {
		fmt.Fprintf(out, "Culture: %s\n", run.URLs.Culture.URL)
	}
	if run.URLs.Glassdoor.URL != "" {
		fmt.Fprintf(out, "Glassdoor: %s\n", run.URLs.Glassdoor.URL)
	}
	if run.URLs.Crunchbase.URL != "" {
		fmt.Fprintf(out, "Crunchbase: %s\n", run.URLs.Crunchbase.URL)
	}

	if len(run.People) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONTACT\tTITLE\tTYPE\tRELEVANCE")
		for _, p := range run.People {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Name, p.Title, p.Type, p.Relevance)
		}
		w.Flush()
	}

	fmt.Fprintf(out, "\nAPI calls: %d", run.APICalls)
	if len(run.Errors) > 0 {
		fmt.Fprintf(out, ", degraded steps: %d", len(run.Errors))
	}
	fmt.Fprintln(out)
}

func init() {
	researchCmd.Flags().StringVar(&researchProfileID, "profile", "", "search profile id")
	rootCmd.AddCommand(researchCmd)
}
