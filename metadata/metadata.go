// Package metadata writes the YouTube title, description and tags for a
// finished script.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/llm"
	"github.com/drewmudry/scriptcast/prompts"
)

// YouTube rejects titles over this many characters.
const maxTitleLength = 100

var ErrEmptyTitle = errors.New("metadata: empty title")

// Metadata is what gets attached to the uploaded video.
type Metadata struct {
	Title       string   `json:"title" jsonschema_description:"A catchy title shorter than 60 characters"`
	Description string   `json:"description" jsonschema_description:"A description shorter than 150 characters"`
	Tags        []string `json:"tags" jsonschema_description:"Keyword tags related to the script"`
}

var metadataSchema = llm.GenerateSchema[Metadata]()

// Writer produces Metadata with a language model.
type Writer struct {
	gen llm.Generator
	log *zap.Logger
}

func NewWriter(gen llm.Generator, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{gen: gen, log: log}
}

// Generate asks for all three fields in one structured call when the model
// supports it, and falls back to one plain call per field otherwise.
func (w *Writer) Generate(ctx context.Context, script string) (Metadata, error) {
	var (
		md  Metadata
		err error
	)
	if sg, ok := w.gen.(llm.StructuredGenerator); ok {
		md, err = w.structured(ctx, sg, script)
	} else {
		md, err = w.plain(ctx, script)
	}
	if err != nil {
		return Metadata{}, err
	}

	md.Title = clip(cleanLine(md.Title), maxTitleLength)
	md.Description = cleanLine(md.Description)
	md.Tags = cleanTags(md.Tags)
	if md.Title == "" {
		return Metadata{}, ErrEmptyTitle
	}

	w.log.Debug("generated metadata",
		zap.String("title", md.Title),
		zap.Int("tags", len(md.Tags)),
	)
	return md, nil
}

func (w *Writer) structured(ctx context.Context, sg llm.StructuredGenerator, script string) (Metadata, error) {
	var md Metadata
	if err := sg.GenerateStructured(ctx, prompts.VideoMetadata(script), "video_metadata", metadataSchema, &md); err != nil {
		return Metadata{}, fmt.Errorf("error generating metadata: %w", err)
	}
	return md, nil
}

func (w *Writer) plain(ctx context.Context, script string) (Metadata, error) {
	title, err := w.gen.Generate(ctx, prompts.VideoTitle(script))
	if err != nil {
		return Metadata{}, fmt.Errorf("error generating title: %w", err)
	}
	description, err := w.gen.Generate(ctx, prompts.VideoDescription(script))
	if err != nil {
		return Metadata{}, fmt.Errorf("error generating description: %w", err)
	}
	tags, err := w.gen.Generate(ctx, prompts.VideoTags(script))
	if err != nil {
		return Metadata{}, fmt.Errorf("error generating tags: %w", err)
	}
	return Metadata{
		Title:       title,
		Description: description,
		Tags:        SplitTags(tags),
	}, nil
}

// SplitTags splits a comma-separated tag line.
func SplitTags(line string) []string {
	return cleanTags(strings.Split(line, ","))
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimLeft(cleanLine(t), "#")
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// cleanLine trims whitespace and one pair of surrounding quotes.
func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
