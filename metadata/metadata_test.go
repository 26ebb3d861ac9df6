package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/scriptcast/llm"
)

func routedGenerator(calls *[]string) llm.GeneratorFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "title generator"):
			*calls = append(*calls, "title")
			return `"Why Octopuses Have Three Hearts"`, nil
		case strings.Contains(prompt, "description generator"):
			*calls = append(*calls, "description")
			return "  A quick look at octopus biology.  ", nil
		case strings.Contains(prompt, "tag generator"):
			*calls = append(*calls, "tags")
			return "octopus, biology,, #science , Octopus", nil
		}
		return "", errors.New("unexpected prompt")
	}
}

func TestGenerate_PlainCalls(t *testing.T) {
	var calls []string
	w := NewWriter(routedGenerator(&calls), nil)

	md, err := w.Generate(context.Background(), "Octopuses have three hearts...")
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "description", "tags"}, calls)
	assert.Equal(t, "Why Octopuses Have Three Hearts", md.Title)
	assert.Equal(t, "A quick look at octopus biology.", md.Description)
	assert.Equal(t, []string{"octopus", "biology", "science"}, md.Tags)
}

func TestGenerate_PlainErrorPropagates(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewWriter(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "description generator") {
			return "", boom
		}
		return "ok", nil
	}), nil)

	_, err := w.Generate(context.Background(), "script")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "description")
}

func TestGenerate_EmptyTitle(t *testing.T) {
	w := NewWriter(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return `""`, nil
	}), nil)

	_, err := w.Generate(context.Background(), "script")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

type structuredFake struct {
	llm.GeneratorFunc
	raw    string
	name   string
	schema interface{}
}

func (s *structuredFake) GenerateStructured(ctx context.Context, prompt, name string, schema, out interface{}) error {
	s.name = name
	s.schema = schema
	return json.Unmarshal([]byte(s.raw), out)
}

func TestGenerate_Structured(t *testing.T) {
	fake := &structuredFake{
		GeneratorFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("plain call not expected")
		},
		raw: `{"title":"Three Hearts","description":"Octopus facts.","tags":["octopus"," ","Octopus","marine life"]}`,
	}
	w := NewWriter(fake, nil)

	md, err := w.Generate(context.Background(), "script")
	require.NoError(t, err)
	assert.Equal(t, "video_metadata", fake.name)
	assert.NotNil(t, fake.schema)
	assert.Equal(t, Metadata{
		Title:       "Three Hearts",
		Description: "Octopus facts.",
		Tags:        []string{"octopus", "marine life"},
	}, md)
}

func TestGenerate_ClipsLongTitle(t *testing.T) {
	long := strings.Repeat("a", 150)
	w := NewWriter(llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return long, nil
	}), nil)

	md, err := w.Generate(context.Background(), "script")
	require.NoError(t, err)
	assert.Len(t, md.Title, maxTitleLength)
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a, b, c", []string{"a", "b", "c"}},
		{"", []string{}},
		{" , ,", []string{}},
		{`"quoted", plain`, []string{"quoted", "plain"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitTags(tt.in), tt.in)
	}
}
