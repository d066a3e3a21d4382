package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/domain"
	"github.com/MorseWayne/stock_bff/internal/metrics"
	"github.com/MorseWayne/stock_bff/internal/upstream"
)

// RecipeService 定义配方可行性校验接口
type RecipeService interface {
	ValidateRecipe(ctx context.Context, recipeID, district string) (*domain.ValidationResult, error)
}

// recipeService 实现RecipeService接口
type recipeService struct {
	client    upstream.Getter
	upstreams Upstreams
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRecipeService 创建配方校验服务实例
func NewRecipeService(client upstream.Getter, upstreams Upstreams, m *metrics.Metrics, logger *zap.Logger) RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &recipeService{
		client:    client,
		upstreams: upstreams,
		metrics:   m,
		logger:    logger,
	}
}

// ValidateRecipe 校验配方在当前库存下是否可行
// 1) 获取配方；2) 按原料并发查询库存；3) 逐项核对；4) 推导整体状态
// 任一库存查询失败则整体失败
func (s *recipeService) ValidateRecipe(ctx context.Context, recipeID, district string) (*domain.ValidationResult, error) {
	if strings.TrimSpace(recipeID) == "" {
		return nil, fmt.Errorf("%w: recipe id is required", domain.ErrInvalidArgument)
	}

	payload, err := s.client.Get(ctx, s.upstreams.Recipes, recipePath(recipeID), nil)
	if err != nil {
		return nil, err
	}
	recipe, err := domain.ParseRecipe(payload)
	if err != nil {
		s.logger.Warn("recipe payload rejected", zap.String("recipe_id", recipeID), zap.Error(err))
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	stocks, err := gather(len(recipe.Ingredients), func(i int) ([]domain.StockEntry, error) {
		listing, err := s.client.Get(detached, s.upstreams.Inventory, "/stock",
			stockQuery(recipe.Ingredients[i].ProductID, district))
		if err != nil {
			return nil, err
		}
		return domain.StockEntries(listing), nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.ValidationItem, len(recipe.Ingredients))
	for i, ingredient := range recipe.Ingredients {
		items[i] = domain.Reconcile(ingredient, stocks[i])
	}

	result := domain.NewValidationResult(recipeID, items)
	s.metrics.RecordValidation(string(result.Status))
	s.logger.Info("recipe validated",
		zap.String("recipe_id", recipeID),
		zap.String("estado", string(result.Status)),
		zap.Int("items", len(items)),
	)
	return result, nil
}
