package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRecipe 配方服务返回的数据缺少必填字段或结构不合法
var ErrMalformedRecipe = errors.New("malformed recipe")

// 配方字段候选名
var (
	RecipeDetailFields      = []string{"detalle", "ingredientes", "ingredients"}
	IngredientProductFields = []string{"id_producto", "product_id"}
	IngredientQtyFields     = []string{"cantidad", "quantity"}
)

// Ingredient 配方中的一项原料
type Ingredient struct {
	ProductID string
	Quantity  float64
}

// Recipe 配方的有序原料列表
type Recipe struct {
	Ingredients []Ingredient
}

// ParseRecipe 从配方服务的响应体中解析配方
// 缺失的明细列表视为空列表，保留原料顺序；
// 原料缺少商品ID或数量时返回 ErrMalformedRecipe，不做默认值填充
func ParseRecipe(payload any) (Recipe, error) {
	record, ok := payload.(map[string]any)
	if !ok {
		return Recipe{}, fmt.Errorf("%w: payload is not an object", ErrMalformedRecipe)
	}

	var detail []any
	if raw := firstValue(record, RecipeDetailFields); raw != nil {
		if detail, ok = raw.([]any); !ok {
			return Recipe{}, fmt.Errorf("%w: ingredient list is not an array", ErrMalformedRecipe)
		}
	}

	recipe := Recipe{Ingredients: make([]Ingredient, 0, len(detail))}
	for i, raw := range detail {
		ingredient, err := parseIngredient(raw)
		if err != nil {
			return Recipe{}, fmt.Errorf("%w: ingredient %d: %s", ErrMalformedRecipe, i, err.Error())
		}
		recipe.Ingredients = append(recipe.Ingredients, ingredient)
	}
	return recipe, nil
}

func parseIngredient(raw any) (Ingredient, error) {
	line, ok := raw.(map[string]any)
	if !ok {
		return Ingredient{}, errors.New("not an object")
	}

	productID := strings.TrimSpace(stringOf(firstValue(line, IngredientProductFields)))
	if productID == "" {
		return Ingredient{}, errors.New("missing product id")
	}

	rawQty := firstValue(line, IngredientQtyFields)
	if rawQty == nil {
		return Ingredient{}, errors.New("missing quantity")
	}
	qty, ok := CoerceQuantity(rawQty)
	if !ok {
		return Ingredient{}, fmt.Errorf("quantity %v is not numeric", rawQty)
	}
	return Ingredient{ProductID: productID, Quantity: qty}, nil
}
