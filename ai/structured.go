package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tripweaver/tripweaver/core"
)

// CompleteJSON runs a completion and unmarshals the output into target.
// Models frequently wrap JSON in markdown fences or surround it with
// prose, so the payload is extracted before unmarshaling. Failures wrap
// core.ErrMalformedCompletion so callers can apply their own
// retry/degrade/fail policy with errors.Is.
func CompleteJSON(ctx context.Context, client Client, prompt string, options *core.AIOptions, target interface{}) error {
	resp, err := client.GenerateResponse(ctx, prompt, options)
	if err != nil {
		return err
	}

	payload := ExtractJSON(resp.Content)
	if payload == "" {
		return fmt.Errorf("no JSON payload in completion output: %w", core.ErrMalformedCompletion)
	}

	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("completion output is not valid %T: %v: %w", target, err, core.ErrMalformedCompletion)
	}
	return nil
}

// ExtractJSON locates the JSON payload inside raw model output. It
// strips markdown code fences first, then falls back to the outermost
// bracket pair.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}

	// Prose around the payload: take the outermost bracket pair.
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
