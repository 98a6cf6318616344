// Package vertex provides answer generation through Gemini on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// Config holds Vertex AI client configuration.
type Config struct {
	ProjectID       string
	Location        string // e.g. "us-central1"
	Model           string // e.g. "gemini-1.5-pro"
	CredentialsFile string // optional service account JSON; ADC is used when empty
	Temperature     float32
	MaxOutputTokens int32
	SystemPrompt    string
}

// Client generates text with a single configured Gemini model.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a Vertex AI client.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.ProjectID == "" || config.Location == "" {
		return nil, fmt.Errorf("project ID and location are required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, config.ProjectID, config.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(config.Temperature),
	}
	if config.MaxOutputTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(config.MaxOutputTokens)
	}
	if config.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(config.SystemPrompt)},
		}
	}

	return &Client{client: client, model: model}, nil
}

// Complete sends prompt to Gemini and returns the concatenated text parts.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	slog.Debug("vertex completion", "prompt_len", len(prompt), "answer_len", len(text))
	return text, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return text, nil
}
