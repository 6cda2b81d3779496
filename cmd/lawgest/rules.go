package main

import (
	"github.com/spf13/cobra"
)

func rulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective marker rules and artifact phrases as YAML",
		Long: `Print the rule set a conversion would use: the built-in table merged
with --rules (or $RULES_FILE). The output is a complete rules file with
replace: true and can be edited and passed back with --rules.

A rules file that does not compile makes this command fail, so it also serves
as a check before deploying a new file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.loadRules()
			if err != nil {
				return err
			}
			data, err := set.Export()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
