// Package resp 提供统一的 JSON 响应写出与错误映射。
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 通用错误信息
const (
	MsgUpstreamError       = "Upstream error"
	MsgUpstreamUnreachable = "Upstream timeout/unreachable"
	MsgOrchestratorError   = "Orchestrator error"
	MsgTooManyRequests     = "Too many requests"
	MsgInternalError       = "Internal server error"
	MsgNotFound            = "Not found"
)

// JSON 以给定状态码写出 JSON 响应体，供 net/http 中间件使用
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Error 写出 {error: msg} 形式的错误响应
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, gin.H{"error": msg})
}
