package rag

import (
	"fmt"
	"strings"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

const instructions = `You answer questions about a single PDF document.
Use only the context excerpts below. Each excerpt is tagged with the page it came from.
Cite the pages you rely on as (page N). If the context does not contain the answer, say so plainly instead of guessing.`

// BuildPrompt renders the grounded prompt for a question and its retrieved
// chunks, in rank order.
func BuildPrompt(question string, chunks []models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nCONTEXT:\n")
	for _, c := range chunks {
		// One excerpt per line keeps page tags unambiguous.
		text := strings.Join(strings.Fields(c.Text), " ")
		fmt.Fprintf(&b, "[page %d] %s\n", c.Page, text)
	}
	b.WriteString("\nQUESTION: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nANSWER:")
	return b.String()
}
