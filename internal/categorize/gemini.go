package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for classification.
const DefaultModel = "gemini-2.0-flash"

// GeminiClassifier implements Classifier on top of the Gemini API.
// The API key is read from the environment by the genai client
// (GEMINI_API_KEY / GOOGLE_API_KEY).
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a Gemini-backed classifier. An empty model
// selects DefaultModel.
func NewGeminiClassifier(ctx context.Context, model string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// Classify sends one batch of descriptions and returns one label per
// input, in order. The model is instructed to answer with a strict JSON
// array of strings drawn only from the supplied vocabulary; the Merger
// still validates every label against it.
func (g *GeminiClassifier) Classify(ctx context.Context, descriptions []string, vocabulary []string) ([]string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(descriptions, vocabulary)},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	var labels []string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	return labels, nil
}

func buildPrompt(descriptions, vocabulary []string) string {
	var b strings.Builder
	b.WriteString("You categorize bank transaction descriptions.\n\n")
	b.WriteString("Use ONLY these category names:\n")
	for _, v := range vocabulary {
		b.WriteString("- " + v + "\n")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Output STRICT JSON only: a JSON array of strings.\n")
	b.WriteString("- Exactly one label per input line, in the same order.\n")
	b.WriteString("- Every label must be one of the category names above.\n")
	b.WriteString("- Use \"income\" for incoming money, \"other\" when nothing fits.\n")
	b.WriteString("- Do NOT wrap the response in code fences or Markdown.\n")
	b.WriteString("- Output must begin with \"[\" and end with \"]\".\n\n")
	b.WriteString("Transactions:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
