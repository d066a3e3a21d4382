// Package api 提供对外 HTTP 接口的 gin 处理器。
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/middleware"
	"github.com/MorseWayne/stock_bff/internal/resp"
	"github.com/MorseWayne/stock_bff/internal/service"
)

// AvailabilityHandler 商品库存查询处理器
type AvailabilityHandler struct {
	availabilityService service.AvailabilityService
	logger              *zap.Logger
}

// NewAvailabilityHandler 创建商品库存查询处理器实例
func NewAvailabilityHandler(availabilityService service.AvailabilityService, logger *zap.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityHandler{
		availabilityService: availabilityService,
		logger:              logger,
	}
}

// GetAvailability 查询商品信息及各分店库存
// GET /api/v1/productos/:id/disponibilidad?distrito=
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	reqID := middleware.RequestIDFromContext(c.Request.Context())
	productID := c.Param("id")
	district := c.Query("distrito")

	availability, err := h.availabilityService.GetAvailability(c.Request.Context(), productID, district)
	if err != nil {
		h.logger.Warn("get availability failed",
			zap.String("request_id", reqID),
			zap.String("product_id", productID),
			zap.Error(err),
		)
		resp.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}
