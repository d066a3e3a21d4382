package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/domain"
	"github.com/MorseWayne/stock_bff/internal/metrics"
	"github.com/MorseWayne/stock_bff/internal/upstream"
)

func recipePayload(id string, lines ...map[string]any) map[string]any {
	detail := make([]any, 0, len(lines))
	for _, line := range lines {
		detail = append(detail, line)
	}
	return map[string]any{"id_receta": id, "detalle": detail}
}

func line(productID string, qty float64) map[string]any {
	return map[string]any{"id_producto": productID, "cantidad": qty}
}

func newTestRecipeService(fake *fakeGetter) RecipeService {
	return NewRecipeService(fake, testUpstreams, metrics.NewWithRegisterer(prometheus.NewRegistry()), zap.NewNop())
}

func TestRecipeService_ValidateRecipe_Partial(t *testing.T) {
	fake := newFakeGetter()
	fake.respond("recipes", "/recetas/R1", nil, recipePayload("R1", line("A", 5), line("B", 3)))
	fake.respond("inventory", "/stock", q("A"), stockListing("S1", 2.0, "S2", 10.0))
	fake.respond("inventory", "/stock", q("B"), stockListing("S1", 1.0))

	result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "")
	require.NoError(t, err)

	assert.Equal(t, "R1", result.RecipeID)
	assert.Equal(t, domain.StatusPartial, result.Status)
	require.Len(t, result.Items, 2)
	assert.Equal(t, domain.ValidationItem{ProductID: "A", Requested: 5, Available: 12, SuggestedBranchID: "S2"}, result.Items[0])
	assert.Equal(t, domain.ValidationItem{ProductID: "B", Requested: 3, Available: 1, SuggestedBranchID: nil}, result.Items[1])
}

func TestRecipeService_ValidateRecipe_Statuses(t *testing.T) {
	tests := []struct {
		name      string
		recipe    map[string]any
		stock     map[string][]any
		want      domain.ValidationStatus
		wantItems int
	}{
		{
			name:      "empty ingredient list is validated",
			recipe:    recipePayload("R1"),
			want:      domain.StatusValidated,
			wantItems: 0,
		},
		{
			name:      "missing detail is validated",
			recipe:    map[string]any{"id_receta": "R1"},
			want:      domain.StatusValidated,
			wantItems: 0,
		},
		{
			name:   "everything in stock",
			recipe: recipePayload("R1", line("A", 2), line("B", 2)),
			stock: map[string][]any{
				"A": stockListing("S1", 2.0),
				"B": stockListing("S1", 1.0, "S2", 1.0),
			},
			want:      domain.StatusValidated,
			wantItems: 2,
		},
		{
			name:   "nothing in stock",
			recipe: recipePayload("R1", line("A", 2), line("B", 2)),
			stock: map[string][]any{
				"A": stockListing("S1", 0.0),
				"B": {},
			},
			want:      domain.StatusRejected,
			wantItems: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGetter()
			fake.respond("recipes", "/recetas/R1", nil, tt.recipe)
			for productID, listing := range tt.stock {
				fake.respond("inventory", "/stock", q(productID), listing)
			}

			result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.Len(t, result.Items, tt.wantItems)
			assert.NotNil(t, result.Items)
			assert.Equal(t, 1+tt.wantItems, fake.callCount())
		})
	}
}

func TestRecipeService_ValidateRecipe_TieBreakFirstFit(t *testing.T) {
	fake := newFakeGetter()
	fake.respond("recipes", "/recetas/R1", nil, recipePayload("R1", line("A", 5)))
	fake.respond("inventory", "/stock", q("A"), stockListing("S1", 5.0, "S2", 100.0))

	result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "")
	require.NoError(t, err)
	assert.Equal(t, "S1", result.Items[0].SuggestedBranchID)
}

func TestRecipeService_ValidateRecipe_MixedQuantityFields(t *testing.T) {
	fake := newFakeGetter()
	fake.respond("recipes", "/recetas/R1", nil, recipePayload("R1", line("A", 6)))
	fake.respond("inventory", "/stock", q("A"), []any{
		map[string]any{"id_sucursal": "S1", "cantidad": 2.0},
		map[string]any{"id_sucursal": "S2", "qty": "3"},
		map[string]any{"id_sucursal": "S3"},
		map[string]any{"branch_id": "S4", "stock": 6.0},
	})

	result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "")
	require.NoError(t, err)
	assert.Equal(t, 11.0, result.Items[0].Available)
	assert.Equal(t, "S4", result.Items[0].SuggestedBranchID)
	assert.Equal(t, domain.StatusValidated, result.Status)
}

func TestRecipeService_ValidateRecipe_RecipeNotFound(t *testing.T) {
	fake := newFakeGetter()
	fake.fail("recipes", "/recetas/R404", nil, &upstream.HTTPError{Service: "recipes", Status: 404, Body: map[string]any{"detail": "Receta no encontrada"}})

	_, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R404", "")
	var httpErr *upstream.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 404, httpErr.Status)
	assert.Equal(t, 1, fake.callCount())
}

func TestRecipeService_ValidateRecipe_InvalidArgument(t *testing.T) {
	fake := newFakeGetter()
	_, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), " ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 0, fake.callCount())
}

func TestRecipeService_ValidateRecipe_District(t *testing.T) {
	fake := newFakeGetter()
	fake.respond("recipes", "/recetas/R1", nil, recipePayload("R1", line("A", 1)))
	fake.respond("inventory", "/stock", url.Values{"id_producto": {"A"}, "distrito": {"Lima"}}, stockListing("S1", 1.0))

	result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "Lima")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, result.Status)
}

func TestRecipeService_ValidateRecipe_OrderFollowsIngredients(t *testing.T) {
	fake := newFakeGetter()
	fake.respond("recipes", "/recetas/R1", nil, recipePayload("R1", line("A", 1), line("B", 1), line("C", 1)))
	fake.respond("inventory", "/stock", q("A"), stockListing("SA", 1.0))
	fake.respond("inventory", "/stock", q("B"), stockListing("SB", 1.0))
	fake.respond("inventory", "/stock", q("C"), stockListing("SC", 1.0))
	fake.hook = func(_ context.Context, call fakeCall) {
		// A 最后完成
		if call.query.Get("id_producto") == "A" {
			time.Sleep(50 * time.Millisecond)
		}
	}

	result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "")
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "A", result.Items[0].ProductID)
	assert.Equal(t, "B", result.Items[1].ProductID)
	assert.Equal(t, "C", result.Items[2].ProductID)
	assert.Equal(t, "SA", result.Items[0].SuggestedBranchID)
}

func TestRecipeService_ValidateRecipe_FailureDoesNotWaitForStragglers(t *testing.T) {
	fake := newFakeGetter()
	boom := &upstream.UnreachableError{Service: "inventory", Err: errors.New("connection refused")}
	fake.respond("recipes", "/recetas/R1", nil, recipePayload("R1", line("A", 1), line("B", 1)))
	fake.fail("inventory", "/stock", q("A"), boom)
	fake.respond("inventory", "/stock", q("B"), stockListing("S1", 1.0))

	release := make(chan struct{})
	stragglerCtxErr := make(chan error, 1)
	fake.hook = func(ctx context.Context, call fakeCall) {
		if call.query.Get("id_producto") == "B" {
			<-release
			stragglerCtxErr <- ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := newTestRecipeService(fake).ValidateRecipe(ctx, "R1", "")
		done <- err
	}()

	select {
	case err := <-done:
		assert.Same(t, boom, err)
	case <-time.After(time.Second):
		t.Fatal("validation blocked on a straggling stock lookup")
	}

	// 请求结束后，仍在运行的调用不受取消影响
	cancel()
	close(release)
	select {
	case err := <-stragglerCtxErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("straggler never completed")
	}
}

func TestRecipeService_ValidateRecipe_MalformedRecipe(t *testing.T) {
	tests := []struct {
		name   string
		recipe any
	}{
		{
			name:   "ingredient without quantity",
			recipe: map[string]any{"id_receta": "R1", "detalle": []any{map[string]any{"id_producto": "A"}}},
		},
		{
			name:   "ingredient without product id",
			recipe: map[string]any{"id_receta": "R1", "detalle": []any{map[string]any{"cantidad": 2.0}}},
		},
		{
			name:   "ingredient with non-numeric quantity",
			recipe: map[string]any{"id_receta": "R1", "detalle": []any{map[string]any{"id_producto": "A", "cantidad": "dos"}}},
		},
		{
			name:   "recipe is not an object",
			recipe: []any{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGetter()
			fake.respond("recipes", "/recetas/R1", nil, tt.recipe)
			fake.respond("inventory", "/stock", q(""), stockListing("S1", 50.0))
			fake.respond("inventory", "/stock", q("A"), stockListing("S1", 50.0))

			result, err := newTestRecipeService(fake).ValidateRecipe(context.Background(), "R1", "")
			assert.ErrorIs(t, err, domain.ErrMalformedRecipe)
			assert.Nil(t, result)
			// 配方不合法时不查询库存
			assert.Equal(t, 1, fake.callCount())
		})
	}
}
