// Package service 实现聚合业务逻辑层：并发调用上游服务、核对库存、推导配方状态。
package service

import (
	"net/url"
	"strings"

	"github.com/MorseWayne/stock_bff/internal/upstream"
)

// Upstreams 三个上游服务的地址，进程启动时构造后只读
type Upstreams struct {
	Catalog   upstream.Service
	Inventory upstream.Service
	Recipes   upstream.Service
}

func productPath(productID string) string {
	return "/productos/" + url.PathEscape(productID)
}

func recipePath(recipeID string) string {
	return "/recetas/" + url.PathEscape(recipeID)
}

// stockQuery 构造库存查询参数，未指定区域时不传 distrito
func stockQuery(productID, district string) url.Values {
	query := url.Values{"id_producto": {productID}}
	if d := strings.TrimSpace(district); d != "" {
		query.Set("distrito", d)
	}
	return query
}
