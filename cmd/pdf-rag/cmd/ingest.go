package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mfenderov/pdf-rag/internal/config"
	"github.com/mfenderov/pdf-rag/internal/events"
	"github.com/mfenderov/pdf-rag/internal/fetcher"
	"github.com/mfenderov/pdf-rag/pkg/models"
	"github.com/spf13/cobra"
)

var (
	ingestURL    string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest PDFs and wait for them to be ready",
	Long: `Upload local PDF files, or PDFs fetched from a web page, and wait until
each one has been extracted, chunked, embedded and indexed.

Examples:
  # Ingest local files
  pdf-rag ingest report.pdf handbook.pdf

  # Fetch and ingest the PDFs linked from a page
  pdf-rag ingest --url https://example.com/papers

  # Fetch from every configured source, or one by name
  pdf-rag ingest
  pdf-rag ingest --source papers`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "URL to fetch PDFs from")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Source name from config to fetch")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("ingest command starting", "files", len(args), "url", ingestURL, "source", ingestSource)

	urls, err := fetchURLs(cfg, len(args) > 0)
	if err != nil {
		return err
	}

	// Event channel for ingestion completion
	ingestEvents := make(chan events.IngestionCompleteEvent)
	done := make(chan struct{})

	a, err := newApp(ctx, cfg, func(e events.IngestionCompleteEvent) {
		ingestEvents <- e
	})
	if err != nil {
		return err
	}
	defer a.Close()

	var ready, failed, rejected int

	// Report outcomes as they arrive (consumer)
	go func() {
		defer close(done)
		for event := range ingestEvents {
			if event.Stale {
				continue
			}
			if event.Status == string(models.StatusReady) {
				ready++
				fmt.Printf("Ready: %s (%d pages, %d chunks, %v)\n",
					event.DocumentID, event.Pages, event.Chunks, event.Duration.Round(time.Millisecond))
				continue
			}
			failed++
			fmt.Printf("Failed: %s: %s\n", event.DocumentID, event.Error)
		}
	}()

	upload := func(filename string, data []byte) {
		doc, err := a.svc.Upload(ctx, filename, data)
		if err != nil {
			rejected++
			fmt.Printf("  Error: %v\n", err)
			return
		}
		fmt.Printf("  Document: %s\n", doc.ID)
	}

	// Upload local files and fetched PDFs (producer)
	for _, path := range args {
		fmt.Printf("Uploading: %s\n", path)
		data, err := os.ReadFile(path)
		if err != nil {
			rejected++
			fmt.Printf("  Error: %v\n", err)
			continue
		}
		upload(filepath.Base(path), data)
	}

	f := fetcher.New(fetcher.Config{
		Delay:       cfg.Fetcher.Delay,
		MaxDepth:    cfg.Fetcher.MaxDepth,
		UserAgent:   cfg.Fetcher.UserAgent,
		Timeout:     cfg.Fetcher.Timeout,
		MaxFileSize: cfg.Fetcher.MaxFileSize,
		OnComplete: func(e events.FetchCompleteEvent) {
			slog.Debug("fetch complete", "url", e.SourceURL, "pdfs", e.PDFsFound)
		},
	})
	for _, u := range urls {
		fmt.Printf("Fetching: %s\n", u)
		pdfs, err := f.Fetch(ctx, u)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
		}
		fmt.Printf("  PDFs: %d\n", len(pdfs))
		for _, pdf := range pdfs {
			fmt.Printf("Uploading: %s\n", pdf.URL)
			upload(pdf.Filename, pdf.Data)
		}
	}

	// Wait for every scheduled run; an interrupt cancels the rest.
	shutdownErr := a.svc.Shutdown(ctx)
	close(ingestEvents)
	<-done

	fmt.Printf("\nTotal: %d ready, %d failed, %d rejected\n", ready, failed, rejected)

	if shutdownErr != nil {
		return fmt.Errorf("ingestion interrupted: %w", shutdownErr)
	}
	if failed+rejected > 0 {
		return fmt.Errorf("%d documents were not ingested", failed+rejected)
	}
	return nil
}

// fetchURLs resolves the crawl start points from --url, --source or the
// configured sources. Configured sources are only used implicitly when no
// local files were given.
func fetchURLs(cfg config.Config, haveFiles bool) ([]string, error) {
	if ingestURL != "" {
		return []string{ingestURL}, nil
	}
	if haveFiles && ingestSource == "" {
		return nil, nil
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no files given, no sources configured and no --url provided")
	}

	var urls []string
	for _, source := range cfg.Sources {
		if ingestSource != "" && source.Name != ingestSource {
			continue
		}
		if source.URL != "" {
			urls = append(urls, source.URL)
		}
	}

	if len(urls) == 0 {
		if ingestSource != "" {
			return nil, fmt.Errorf("source %q not found in config", ingestSource)
		}
		return nil, fmt.Errorf("no valid sources found in config")
	}
	return urls, nil
}
