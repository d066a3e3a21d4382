package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"

	// maxRequestIDLen 客户端传入的请求 ID 最大长度
	maxRequestIDLen = 128
)

// RequestID 确保每个请求都有请求 ID：
// 1) 优先沿用请求头 X-Request-ID（仅限可打印 ASCII 且不超长）；
// 2) 否则生成 UUID；
// 3) 将该 ID 写入响应头与请求上下文，供日志关联使用。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), rid)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
