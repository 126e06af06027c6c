package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/cvtriage/internal/recovery"
)

const recognizerPrompt = `List every person's full name that appears in the text below.
Answer with a JSON object of the form {"personas": ["Name Surname", ...]} and nothing else.
If there are none, answer {"personas": []}.

Text:
%s`

// EntityRecognizer finds person names by asking the model.
// It satisfies identity.Recognizer.
type EntityRecognizer struct {
	provider Provider
}

// NewEntityRecognizer creates a recognizer backed by p
func NewEntityRecognizer(p Provider) *EntityRecognizer {
	return &EntityRecognizer{provider: p}
}

// PersonEntities returns the person names the model found in text
func (r *EntityRecognizer) PersonEntities(ctx context.Context, text string) ([]string, error) {
	reply, err := r.provider.Generate(ctx, fmt.Sprintf(recognizerPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("recognize entities: %w", err)
	}

	obj, ok := recovery.Recover(reply.Stdout)
	if !ok {
		return nil, fmt.Errorf("recognize entities: no JSON object in reply")
	}

	list, ok := obj["personas"].([]any)
	if !ok {
		return nil, fmt.Errorf("recognize entities: missing personas list")
	}

	names := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				names = append(names, s)
			}
		}
	}
	return names, nil
}
