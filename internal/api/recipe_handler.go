package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/middleware"
	"github.com/MorseWayne/stock_bff/internal/resp"
	"github.com/MorseWayne/stock_bff/internal/service"
)

// RecipeHandler 配方校验处理器
type RecipeHandler struct {
	recipeService service.RecipeService
	logger        *zap.Logger
}

// NewRecipeHandler 创建配方校验处理器实例
func NewRecipeHandler(recipeService service.RecipeService, logger *zap.Logger) *RecipeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeHandler{
		recipeService: recipeService,
		logger:        logger,
	}
}

// ValidateRecipe 校验配方在当前库存下的可行性
// GET /api/v1/recetas/:id/validacion?distrito=
func (h *RecipeHandler) ValidateRecipe(c *gin.Context) {
	reqID := middleware.RequestIDFromContext(c.Request.Context())
	recipeID := c.Param("id")

	result, err := h.recipeService.ValidateRecipe(c.Request.Context(), recipeID, c.Query("distrito"))
	if err != nil {
		h.logger.Warn("validate recipe failed",
			zap.String("request_id", reqID),
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		resp.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
