package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

const checksumKey = "seed.checksum"

var (
	colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	slugRe  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Seed is the reference-data file. It is YAML; JSON is accepted too,
// including a bare array of ingredients.
type Seed struct {
	Ingredients []models.Ingredient `yaml:"ingredients" json:"ingredients"`
	Tags        []models.Tag        `yaml:"tags" json:"tags"`
}

// Writer persists reference data and the checksum of the last import.
type Writer interface {
	ImportReference(ctx context.Context, ingredients []models.Ingredient, tags []models.Tag) (int, int, error)
	Meta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// ParseSeed decodes and validates seed data.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := yaml.Unmarshal(trimmed, &s.Ingredients); err != nil {
			return nil, fmt.Errorf("catalog: parse seed: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("catalog: parse seed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every entry and rejects tags that would collide on a
// unique column.
func (s *Seed) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.Ingredients, validation.Each(validation.By(checkIngredient))),
		validation.Field(&s.Tags, validation.Each(validation.By(checkTag))),
	)
	if err != nil {
		return apperr.FromValidation(err)
	}

	seen := map[string]int{}
	for i, t := range s.Tags {
		for _, key := range []string{"name:" + t.Name, "color:" + t.Color, "slug:" + t.Slug} {
			if prev, dup := seen[key]; dup {
				return apperr.Invalid(fmt.Sprintf("tags.%d", i), fmt.Sprintf("duplicates %s of tags.%d", key, prev))
			}
			seen[key] = i
		}
	}
	return nil
}

func checkIngredient(v any) error {
	ing := v.(models.Ingredient)
	return validation.ValidateStruct(&ing,
		validation.Field(&ing.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&ing.MeasurementUnit, validation.Required, validation.Length(1, 200)),
	)
}

func checkTag(v any) error {
	t := v.(models.Tag)
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.Color, validation.Required, validation.Match(colorRe).Error("must be a hex color like #1A2B3C")),
		validation.Field(&t.Slug, validation.Required, validation.Length(1, 200), validation.Match(slugRe)),
	)
}

// Sync imports the seed file at path unless its checksum matches the last
// import. It reports whether anything was imported.
func Sync(ctx context.Context, path string, w Writer, logger *slog.Logger) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("catalog: read seed: %w", err)
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	prev, err := w.Meta(ctx, checksumKey)
	if err != nil {
		return false, err
	}
	if prev == checksum {
		logger.Debug("seed: unchanged", slog.String("path", path))
		return false, nil
	}

	seed, err := ParseSeed(data)
	if err != nil {
		return false, err
	}
	added, tags, err := w.ImportReference(ctx, seed.Ingredients, seed.Tags)
	if err != nil {
		return false, err
	}
	if err := w.SetMeta(ctx, checksumKey, checksum); err != nil {
		return false, err
	}

	logger.Info("seed: imported",
		slog.String("path", path),
		slog.Int("ingredients_added", added),
		slog.Int("tags_written", tags))
	return true, nil
}
