package shopping

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

type fakeSource map[int64][]models.IngredientAmount

func (f fakeSource) CartLines(_ context.Context, userID int64) ([]models.IngredientAmount, error) {
	return f[userID], nil
}

var user = models.Actor{UserID: 1}

func TestAggregate_SumsAcrossRecipes(t *testing.T) {
	// recipe X: flour 200, egg 2; recipe Y: flour 300, sugar 1
	src := fakeSource{1: {
		{ID: 1, Name: "flour", MeasurementUnit: "g", Amount: 200},
		{ID: 2, Name: "egg", MeasurementUnit: "pcs", Amount: 2},
		{ID: 1, Name: "flour", MeasurementUnit: "g", Amount: 300},
		{ID: 3, Name: "sugar", MeasurementUnit: "g", Amount: 1},
	}}
	rep, err := NewAggregator(src).Aggregate(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	want := []Item{
		{Name: "egg", MeasurementUnit: "pcs", Total: 2},
		{Name: "flour", MeasurementUnit: "g", Total: 500},
		{Name: "sugar", MeasurementUnit: "g", Total: 1},
	}
	if !slices.Equal(rep.Items, want) {
		t.Errorf("items = %+v, want %+v", rep.Items, want)
	}
}

func TestAggregate_GroupsByNameAndUnit(t *testing.T) {
	src := fakeSource{1: {
		{ID: 1, Name: "salt", MeasurementUnit: "g", Amount: 5},
		{ID: 7, Name: "salt", MeasurementUnit: "g", Amount: 10},
		{ID: 8, Name: "salt", MeasurementUnit: "pinch", Amount: 1},
		{ID: 9, Name: "Apple", MeasurementUnit: "pcs", Amount: 3},
	}}
	rep, err := NewAggregator(src).Aggregate(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	want := []Item{
		{Name: "Apple", MeasurementUnit: "pcs", Total: 3},
		{Name: "salt", MeasurementUnit: "g", Total: 15},
		{Name: "salt", MeasurementUnit: "pinch", Total: 1},
	}
	if !slices.Equal(rep.Items, want) {
		t.Errorf("items = %+v, want %+v", rep.Items, want)
	}
}

func TestAggregate_EmptyCart(t *testing.T) {
	rep, err := NewAggregator(fakeSource{}).Aggregate(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	lines := slices.Collect(rep.Lines())
	if !slices.Equal(lines, []string{Header}) {
		t.Errorf("lines = %q", lines)
	}
	var b strings.Builder
	if _, err := rep.WriteTo(&b); err != nil {
		t.Fatal(err)
	}
	if b.String() != "Shopping list:\n" {
		t.Errorf("text = %q", b.String())
	}
}

func TestAggregate_Anonymous(t *testing.T) {
	_, err := NewAggregator(fakeSource{}).Aggregate(context.Background(), models.Anonymous)
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestReport_Text(t *testing.T) {
	rep := &Report{Items: []Item{
		{Name: "egg", MeasurementUnit: "pcs", Total: 2},
		{Name: "flour", MeasurementUnit: "g", Total: 500},
	}}
	lines := slices.Collect(rep.Lines())
	want := []string{"Shopping list:", "egg - 2, pcs", "flour - 500, g"}
	if !slices.Equal(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}

	var b strings.Builder
	n, err := rep.WriteTo(&b)
	if err != nil {
		t.Fatal(err)
	}
	text := "Shopping list:\n\negg - 2, pcs\nflour - 500, g"
	if b.String() != text || n != int64(len(text)) {
		t.Errorf("text = %q (%d bytes)", b.String(), n)
	}
}
