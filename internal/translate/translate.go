// Package translate renders Japanese shop-floor text into French for the
// staff who do not read Japanese. Translation is best-effort: callers must
// treat a failure as "store the source text and flag it for retry".
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Term primes the model with the shop's fixed vocabulary.
type Term struct {
	Source string
	Target string
}

// GoogleAI translates through a Gemini model via langchaingo.
type GoogleAI struct {
	llm      *googleai.GoogleAI
	glossary []Term
}

func NewGoogleAI(ctx context.Context, apiKey, model string, glossary []Term) (*GoogleAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("translation api key is empty")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init translation model: %w", err)
	}
	return &GoogleAI{llm: llm, glossary: glossary}, nil
}

func (g *GoogleAI) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, g.prompt(text, from, to),
		llms.WithTemperature(0.1),
	)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("translate: model returned empty output")
	}
	return out, nil
}

func (g *GoogleAI) prompt(text, from, to string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following %s text into %s.\n", languageName(from), languageName(to))
	b.WriteString("The text is an internal task for a small bakery. Keep it short and literal.\n")
	b.WriteString("Reply with the translation only, no quotes, no commentary.\n")
	if len(g.glossary) > 0 {
		b.WriteString("Use this fixed vocabulary:\n")
		for _, t := range g.glossary {
			fmt.Fprintf(&b, "- %s => %s\n", t.Source, t.Target)
		}
	}
	b.WriteString("\nText:\n")
	b.WriteString(text)
	return b.String()
}

func languageName(code string) string {
	switch code {
	case "ja":
		return "Japanese"
	case "fr":
		return "French"
	case "en":
		return "English"
	default:
		return code
	}
}
