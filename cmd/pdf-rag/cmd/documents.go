package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var documentsFormat string

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List registered documents",
	Long: `List every registered document, newest first, with its ingestion status.

Examples:
  pdf-rag documents
  pdf-rag documents --format json`,
	Args: cobra.NoArgs,
	RunE: runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)

	documentsCmd.Flags().StringVar(&documentsFormat, "format", "text", "Output format: text or json")
}

func runDocuments(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.svc.List(ctx)
	if err != nil {
		return fmt.Errorf("listing documents failed: %w", err)
	}

	if documentsFormat == "json" {
		output, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Found %d documents:\n\n", len(docs))
	for _, doc := range docs {
		fmt.Printf("%s  %-10s  %3d pages  %s  %s\n",
			doc.ID, doc.Status, doc.PageCount,
			doc.UploadedAt.Local().Format("2006-01-02 15:04"), doc.Filename)
		if doc.Error != "" {
			fmt.Printf("    error: %s\n", doc.Error)
		}
	}

	return nil
}
