package main

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/adapter/googledrive"
	"github.com/jun/drivelookup/internal/adapter/memory"
	"github.com/jun/drivelookup/internal/auth"
	"github.com/jun/drivelookup/internal/crypto"
	"github.com/jun/drivelookup/internal/extract"
	"github.com/jun/drivelookup/internal/highlight"
	"github.com/jun/drivelookup/internal/lookup"
	"github.com/jun/drivelookup/internal/model"
	"github.com/jun/drivelookup/internal/secret"
	"github.com/jun/drivelookup/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var (
	entityType     string
	scopeFlag      string
	driveIDFlag    string
	eagerFiles     int
	showThumbnails bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <value>...",
	Short: "Search Drive with the service account",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		search := cfg.Search
		if cmd.Flags().Changed("scope") {
			search.Scope = scopeFlag
		}
		if cmd.Flags().Changed("drive-id") {
			search.DriveID = driveIDFlag
		}
		if errs := search.Validate(); len(errs) > 0 {
			return errs
		}

		providers, ts, err := lookupBackend(ctx)
		if err != nil {
			return err
		}

		store := auth.NewStore(auth.StoreConfig{})
		defer store.Close()
		searcher := lookup.New(lookup.Config{
			Auth:           auth.NewController(store, nil),
			Engine:         highlight.NewEngine(extract.New(), highlight.DefaultStrategies),
			Providers:      providers,
			ServiceAccount: ts,
			Sessions:       session.NewMemoryRegistry(0),
			Concurrency:    search.Concurrency,
		})

		entities := make([]model.Entity, len(args))
		for i, v := range args {
			entities[i] = model.Entity{Type: entityType, Value: v}
		}

		results, err := searcher.Search(ctx, entities, lookup.Options{
			UserID:            "cli",
			Username:          "cli",
			Scope:             search.ScopeValue(),
			ShowThumbnails:    showThumbnails,
			EagerContentFiles: eagerFiles,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

// lookupBackend returns the demo corpus in dev mode and Google Drive otherwise.
func lookupBackend(ctx context.Context) (adapter.ProviderFactory, oauth2.TokenSource, error) {
	if cfg.DevMode {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		mem := memory.NewMemoryAdapter(dynamodb.NewFromConfig(awsCfg), cfg.API.DemoTenant)
		return adapter.Static(mem), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "demo"}), nil
	}

	var dec crypto.Encryptor
	if cfg.Google.ServiceAccountKeyCiphertext != "" {
		var err error
		if dec, err = newKMS(ctx); err != nil {
			return nil, nil, err
		}
	}
	key, err := cfg.Google.ServiceAccountKey(ctx, dec, secret.NewEnvResolver())
	if err != nil {
		return nil, nil, err
	}
	if key == nil {
		return nil, nil, fmt.Errorf("no service account key configured (set SERVICE_ACCOUNT_KEY_FILE)")
	}
	ts, err := auth.ServiceAccountTokenSource(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return googledrive.NewProvider(cfg.Google.RequestsPerSecond, cfg.Google.Burst, cfg.Google.MaxResults), ts, nil
}

func init() {
	lookupCmd.Flags().StringVarP(&entityType, "type", "t", "", "Entity type recorded with each value (ip, domain, email, hash)")
	lookupCmd.Flags().StringVar(&scopeFlag, "scope", "", "Search scope: default, drive or allDrives")
	lookupCmd.Flags().StringVar(&driveIDFlag, "drive-id", "", "Shared drive to search when --scope=drive")
	lookupCmd.Flags().IntVar(&eagerFiles, "content", 25, "Number of files whose content is fetched and highlighted")
	lookupCmd.Flags().BoolVar(&showThumbnails, "thumbnails", false, "Download thumbnails")

	rootCmd.AddCommand(lookupCmd)
}
