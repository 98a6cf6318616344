package vertex

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"missing project", Config{Location: "us-central1", Model: "gemini-1.5-pro"}},
		{"missing location", Config{ProjectID: "p", Model: "gemini-1.5-pro"}},
		{"missing model", Config{ProjectID: "p", Location: "us-central1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(t.Context(), tt.config); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestResponseText(t *testing.T) {
	candidate := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		}
	}

	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{"nil response", nil, "", true},
		{"no candidates", &genai.GenerateContentResponse{}, "", true},
		{"single part", candidate(genai.Text(" Paris. ")), "Paris.", false},
		{"multiple parts", candidate(genai.Text("The capital "), genai.Text("is Paris.")), "The capital is Paris.", false},
		{"only whitespace", candidate(genai.Text("  ")), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("responseText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("responseText() = %q, want %q", got, tt.want)
			}
		})
	}
}
