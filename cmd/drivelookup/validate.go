package main

import (
	"encoding/json"
	"fmt"

	"github.com/jun/drivelookup/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured search options",
	RunE: func(cmd *cobra.Command, args []string) error {
		errs := cfgErr
		if errs == nil {
			errs = config.ValidationErrors{}
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(errs); err != nil {
				return err
			}
		} else if len(errs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), success.Render("Options are valid"))
		} else {
			for _, e := range errs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", errStyle.Render(e.Key+":"), e.Message)
			}
		}

		if len(errs) > 0 {
			return fmt.Errorf("%d invalid option(s)", len(errs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
