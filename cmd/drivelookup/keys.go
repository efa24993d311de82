package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var encryptKeyCmd = &cobra.Command{
	Use:   "encrypt-key <service-account.json>",
	Short: "Encrypt a service account key for SERVICE_ACCOUNT_KEY_CIPHERTEXT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		enc, err := newKMS(cmd.Context())
		if err != nil {
			return err
		}
		ciphertext, err := enc.Encrypt(cmd.Context(), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ciphertext)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encryptKeyCmd)
}
