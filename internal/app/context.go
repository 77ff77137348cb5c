// Package app wires workspace config, storage and the translator together
// for the CLI and the server.
package app

import (
	"context"
	"fmt"
	"os"

	"cadence/internal/config"
	"cadence/internal/repo"
	"cadence/internal/translate"
)

// ResolveConfig loads cadence.yml from the workspace, falling back to the
// built-in defaults when the file does not exist.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return config.Default("cadence"), nil
	}
	return cfg, nil
}

// NewTranslator builds the Gemini translator primed with the shop glossary.
// Without an API key it returns a translator that always fails, which the
// engine treats as "store the source text and flag for retry".
func NewTranslator(ctx context.Context, cfg *config.Config, r repo.Repo) (translate.Translator, error) {
	terms := glossaryTerms(ctx, cfg, r)
	apiKey := os.Getenv("CADENCE_GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return disabledTranslator{}, nil
	}
	return translate.NewGoogleAI(ctx, apiKey, cfg.Translation.Model, terms)
}

// glossaryTerms merges the stored glossary over the config seed.
func glossaryTerms(ctx context.Context, cfg *config.Config, r repo.Repo) []translate.Term {
	byJA := map[string]string{}
	var order []string
	for _, entry := range cfg.Translation.Glossary {
		if _, ok := byJA[entry.JA]; !ok {
			order = append(order, entry.JA)
		}
		byJA[entry.JA] = entry.FR
	}
	if r.DB != nil {
		if stored, err := r.ListGlossaryTerms(ctx); err == nil {
			for _, t := range stored {
				if _, ok := byJA[t.JATerm]; !ok {
					order = append(order, t.JATerm)
				}
				byJA[t.JATerm] = t.FRTerm
			}
		}
	}
	terms := make([]translate.Term, 0, len(order))
	for _, ja := range order {
		terms = append(terms, translate.Term{Source: ja, Target: byJA[ja]})
	}
	return terms
}

type disabledTranslator struct{}

func (disabledTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	return "", fmt.Errorf("translator disabled: set CADENCE_GEMINI_API_KEY")
}
