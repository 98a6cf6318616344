package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/pdf-rag/pkg/models"
	"github.com/spf13/cobra"
)

var askFormat string

var askCmd = &cobra.Command{
	Use:   "ask [document-id] [question]",
	Short: "Ask a question about a document",
	Long: `Answer a question using only the content of one ready document.

Examples:
  # Ask about a document
  pdf-rag ask 3f2a9c1e "What is the capital of France?"

  # JSON output for scripting
  pdf-rag ask 3f2a9c1e "Who wrote it?" --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askFormat, "format", "text", "Output format: text or json")
}

type askOutput struct {
	MessageID string `json:"message_id"`
	models.Answer
	Cached bool `json:"cached"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.Ask(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askFormat == "json" {
		output, err := json.MarshalIndent(askOutput{
			MessageID: result.MessageID,
			Answer:    result.Answer,
			Cached:    result.Cached,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s\n\n", result.Answer.Text)
	if len(result.Answer.SourcePages) > 0 {
		fmt.Printf("Source pages: %v\n", result.Answer.SourcePages)
	}
	for i, s := range result.Answer.Snippets {
		fmt.Printf("─── Snippet %d (page %d) ───\n%s\n\n", i+1, s.Page, truncate(s.Text, 300))
	}
	fmt.Printf("Message ID: %s", result.MessageID)
	if result.Cached {
		fmt.Print(" (cached)")
	}
	fmt.Println()

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
