package recipe

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/larder/internal/apperr"
)

// Bounds on recipe input.
const (
	MinCookingTime = 1
	MaxCookingTime = 1440
	MinAmount      = 1
	MaxAmount      = 3000
	MaxNameLength  = 256
)

var errDuplicateIngredient = errors.New("duplicate ingredient")

// Input is a complete recipe submission. Update replaces every field with
// the submitted values, so the same shape serves create and update.
type Input struct {
	Name        string      `json:"name"`
	Text        string      `json:"text"`
	Image       string      `json:"image"`
	CookingTime int         `json:"cooking_time"`
	Tags        []int64     `json:"tags"`
	Ingredients []LineInput `json:"ingredients"`
}

// LineInput is one submitted ingredient line.
type LineInput struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Validate checks the submission without touching storage. A repeated
// ingredient id is reported on "ingredients" before any per-line check.
func (in Input) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, MaxNameLength)),
		validation.Field(&in.Text, validation.Required),
		validation.Field(&in.CookingTime,
			validation.Required.Error("must be between 1 and 1440"),
			validation.Min(MinCookingTime), validation.Max(MaxCookingTime)),
		validation.Field(&in.Ingredients,
			validation.Required,
			validation.By(distinctIngredients),
			validation.Each(validation.By(checkLine))),
	)
	return apperr.FromValidation(err)
}

func distinctIngredients(v any) error {
	lines, _ := v.([]LineInput)
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if _, dup := seen[l.ID]; dup {
			return errDuplicateIngredient
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

func checkLine(v any) error {
	l := v.(LineInput)
	return validation.ValidateStruct(&l,
		validation.Field(&l.ID, validation.Required),
		validation.Field(&l.Amount,
			validation.Required.Error("must be between 1 and 3000"),
			validation.Min(MinAmount), validation.Max(MaxAmount)),
	)
}

// tagSet returns the submitted tag ids with duplicates removed, first
// occurrence first.
func (in Input) tagSet() []int64 {
	out := make([]int64, 0, len(in.Tags))
	seen := make(map[int64]struct{}, len(in.Tags))
	for _, id := range in.Tags {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
