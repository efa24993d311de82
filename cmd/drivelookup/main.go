package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/jun/drivelookup/internal/config"
	"github.com/jun/drivelookup/internal/crypto"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	jsonOutput bool
	verbose    bool
	cfg        config.Config
	// cfgErr holds search option errors so validate can report them.
	cfgErr config.ValidationErrors
)

var rootCmd = &cobra.Command{
	Use:           "drivelookup",
	Short:         "drivelookup - search Google Drive for indicators",
	Long:          "Look up IPs, domains, hashes and free text in Google Drive file names and content.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		if configPath != "" {
			if err := os.Setenv(config.EnvConfigPath, configPath); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil && !errors.As(err, &cfgErr) {
			return err
		}

		logCfg := cfg.Log
		logCfg.Format = "console"
		if !verbose {
			logCfg.Level = "error"
		}
		logging.Init(logCfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("drivelookup version %s\n", Version)
	},
}

// newKMS returns the KMS-backed encryptor, or the mock one in dev mode.
func newKMS(ctx context.Context) (crypto.Encryptor, error) {
	if cfg.DevMode {
		return crypto.NewMockEncryptor(), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	keyID := cfg.Google.KMSKeyID
	if keyID == "" {
		keyID = crypto.DefaultKeyID
	}
	return crypto.NewKMSService(kms.NewFromConfig(awsCfg), keyID), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default: $DRIVELOOKUP_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
