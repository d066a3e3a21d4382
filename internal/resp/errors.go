package resp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MorseWayne/stock_bff/internal/upstream"
)

// MapError 将核心层返回的错误映射为 HTTP 状态码与响应体
//
//	*upstream.HTTPError        -> 上游状态码透传，附带 upstream_status / upstream_body
//	*upstream.UnreachableError -> 504
//	其他任何错误                -> 500，detail 为错误文本
func MapError(err error) (int, gin.H) {
	var (
		httpErr        *upstream.HTTPError
		unreachableErr *upstream.UnreachableError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status, gin.H{
			"error":           MsgUpstreamError,
			"upstream_status": httpErr.Status,
			"upstream_body":   httpErr.Body,
		}
	case errors.As(err, &unreachableErr):
		return http.StatusGatewayTimeout, gin.H{"error": MsgUpstreamUnreachable}
	default:
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		return http.StatusInternalServerError, gin.H{
			"error":  MsgOrchestratorError,
			"detail": detail,
		}
	}
}

// AbortWithError 映射错误并终止 gin 请求
func AbortWithError(c *gin.Context, err error) {
	status, body := MapError(err)
	c.AbortWithStatusJSON(status, body)
}
