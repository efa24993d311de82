package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/adapter/memory"
	"github.com/spf13/cobra"
)

var (
	demoMIME    string
	demoDriveID string
)

var demoPutCmd = &cobra.Command{
	Use:   "demo-put <file>...",
	Short: "Add files to the dev-mode demo corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.DevMode {
			return fmt.Errorf("demo-put requires DEV_MODE=true")
		}
		ctx := cmd.Context()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		mem := memory.NewMemoryAdapter(dynamodb.NewFromConfig(awsCfg), cfg.API.DemoTenant)

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			mimeType := demoMIME
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(path))
			}
			if mimeType == "" {
				mimeType = "text/plain"
			}
			if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
				mimeType = mt
			}
			meta, err := mem.Put(ctx, memory.StoredFile{
				FileMetadata: adapter.FileMetadata{Name: filepath.Base(path), MIMEType: mimeType},
				DriveID:      demoDriveID,
				Content:      data,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", success.Render("added"), meta.ID, dim.Render(meta.Name))
		}
		return nil
	},
}

func init() {
	demoPutCmd.Flags().StringVar(&demoMIME, "mime", "", "MIME type (default: from extension)")
	demoPutCmd.Flags().StringVar(&demoDriveID, "drive-id", "", "Shared drive the files belong to")

	rootCmd.AddCommand(demoPutCmd)
}
