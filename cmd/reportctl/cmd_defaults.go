package main

import (
	"github.com/spf13/cobra"

	"github.com/unified-report/apps/api/internal/sections"
)

var defaultsFile string

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Validate a section defaults file and print the resolved sections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		defaults, err := sections.LoadDefaults(defaultsFile)
		if err != nil {
			return err
		}
		resolved := make(map[string]any, len(sections.Keys()))
		for _, key := range sections.Keys() {
			value, err := defaults.For(key)
			if err != nil {
				return err
			}
			resolved[key] = value
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"version":  defaults.Version,
			"sha256":   defaults.SHA256,
			"sections": resolved,
		})
	},
}

func init() {
	defaultsCmd.Flags().StringVar(&defaultsFile, "file", "", "Defaults YAML (built-in table when empty)")
}
