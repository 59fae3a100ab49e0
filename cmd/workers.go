package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcliao/companyscout/internal/config"
)

var workerRoles = []config.WorkerRole{
	config.RoleCompanyFinder,
	config.RoleSignalWorker,
	config.RoleContactWorker,
	config.RoleSynthesizer,
	config.RoleFitAnalyzer,
}

func parseWorkerRole(s string) (config.WorkerRole, error) {
	for _, r := range workerRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", eris.Errorf("unknown worker role %q", s)
}

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Manage stored worker role overrides",
	Long:  "Stored overrides take precedence over workers.yaml. Roles: company_finder, signal_worker, contact_worker, synthesizer, fit_analyzer.",
}

var workersShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored worker overrides",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		out := map[config.WorkerRole]*config.WorkerOverride{}
		for _, role := range workerRoles {
			o, err := st.GetWorkerConfig(ctx, role)
			if err != nil {
				return err
			}
			if o != nil {
				out[role] = o
			}
		}
		if len(out) == 0 {
			fmt.Println("no stored overrides")
			return nil
		}

		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode overrides")
		}
		fmt.Println(string(encoded))
		return nil
	},
}

var (
	workerDisabled       bool
	workerSystemPrompt   string
	workerQueryTemplates []string
)

var workersSetCmd = &cobra.Command{
	Use:   "set <role>",
	Short: "Store an override for a worker role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		role, err := parseWorkerRole(args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		override := config.WorkerOverride{
			SystemPrompt:   workerSystemPrompt,
			QueryTemplates: workerQueryTemplates,
		}
		if cmd.Flags().Changed("disabled") {
			enabled := !workerDisabled
			override.Enabled = &enabled
		}

		if err := st.SetWorkerConfig(ctx, role, override); err != nil {
			return err
		}
		fmt.Printf("stored override for %s\n", role)
		return nil
	},
}

func init() {
	workersSetCmd.Flags().BoolVar(&workerDisabled, "disabled", false, "disable this worker role")
	workersSetCmd.Flags().StringVar(&workerSystemPrompt, "system-prompt", "", "replacement system prompt")
	workersSetCmd.Flags().StringSliceVar(&workerQueryTemplates, "query-template", nil, "replacement query templates (%s = company name)")
	workersCmd.AddCommand(workersShowCmd, workersSetCmd)
	rootCmd.AddCommand(workersCmd)
}
