package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcliao/companyscout/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage search profiles",
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a search profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		role, _ := cmd.Flags().GetString("role")
		if role == "" {
			return eris.New("--role is required")
		}
		industries, _ := cmd.Flags().GetStringSlice("industry")
		stages, _ := cmd.Flags().GetStringSlice("stage")
		skills, _ := cmd.Flags().GetStringSlice("skill")
		locations, _ := cmd.Flags().GetStringSlice("location")
		keywords, _ := cmd.Flags().GetStringSlice("keyword")
		summary, _ := cmd.Flags().GetString("summary")

		profile := &model.SearchProfile{
			Role:       role,
			Industries: industries,
			Stages:     stages,
			Skills:     skills,
			Locations:  locations,
			Keywords:   keywords,
			Summary:    summary,
		}
		if err := st.SaveProfile(ctx, profile); err != nil {
			return err
		}

		fmt.Println(profile.ID)
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <profile-id>",
	Short: "Show a search profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		profile, err := st.GetProfile(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	profileCreateCmd.Flags().String("role", "", "target role, e.g. \"backend engineer\"")
	profileCreateCmd.Flags().StringSlice("industry", nil, "preferred industries")
	profileCreateCmd.Flags().StringSlice("stage", nil, "preferred company stages")
	profileCreateCmd.Flags().StringSlice("skill", nil, "key skills")
	profileCreateCmd.Flags().StringSlice("location", nil, "preferred locations")
	profileCreateCmd.Flags().StringSlice("keyword", nil, "extra search keywords")
	profileCreateCmd.Flags().String("summary", "", "free-form profile summary")

	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}
