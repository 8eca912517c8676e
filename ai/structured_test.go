package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/core"
)

type cannedClient struct {
	content string
	err     error
}

func (c *cannedClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &core.AIResponse{Content: c.content, Model: "stub"}, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"a":1}`,
			want:    `{"a":1}`,
		},
		{
			name:    "json fence",
			content: "```json\n{\"a\":1}\n```",
			want:    `{"a":1}`,
		},
		{
			name:    "plain fence",
			content: "```\n[1,2]\n```",
			want:    `[1,2]`,
		},
		{
			name:    "prose around object",
			content: `Here you go: {"a":1} hope that helps!`,
			want:    `{"a":1}`,
		},
		{
			name:    "prose around array",
			content: `The places are [{"name":"x"}] as requested.`,
			want:    `[{"name":"x"}]`,
		},
		{
			name:    "no payload",
			content: "I cannot help with that.",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestCompleteJSONUnmarshalsTarget(t *testing.T) {
	client := &cannedClient{content: "```json\n{\"destination\":\"Jeju\",\"days\":3}\n```"}

	var out struct {
		Destination string `json:"destination"`
		Days        int    `json:"days"`
	}
	err := CompleteJSON(context.Background(), client, "prompt", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "Jeju", out.Destination)
	assert.Equal(t, 3, out.Days)
}

func TestCompleteJSONMalformedOutput(t *testing.T) {
	client := &cannedClient{content: "sorry, no data"}

	var out map[string]interface{}
	err := CompleteJSON(context.Background(), client, "prompt", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedCompletion))
}

func TestCompleteJSONWrongShape(t *testing.T) {
	client := &cannedClient{content: `{"a":1}`}

	var out []string
	err := CompleteJSON(context.Background(), client, "prompt", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedCompletion))
}

func TestCompleteJSONPropagatesClientError(t *testing.T) {
	backendErr := errors.New("backend down")
	client := &cannedClient{err: backendErr}

	var out map[string]interface{}
	err := CompleteJSON(context.Background(), client, "prompt", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, backendErr))
	assert.False(t, errors.Is(err, core.ErrMalformedCompletion), "transport failures are not format failures")
}
