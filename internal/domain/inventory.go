// Package domain 定义库存、配方与校验结果的领域模型和核心业务规则。
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StockQuantityFields 库存数量字段候选名，按顺序尝试
// 上游库存服务对数量字段命名不统一
var StockQuantityFields = []string{"stock", "cantidad", "qty"}

// BranchIDFields 分店标识字段候选名，按顺序尝试
var BranchIDFields = []string{"id_sucursal", "branch_id"}

// StockEntry 表示上游返回的一条分店库存记录，字段结构不受本服务控制
type StockEntry map[string]any

// Quantity 返回该分店的库存数量，所有候选字段缺失或非数值时为 0
func (e StockEntry) Quantity() float64 {
	return quantityOf(e, StockQuantityFields)
}

// BranchID 返回分店标识原值，缺失时为 nil
func (e StockEntry) BranchID() any {
	return firstValue(e, BranchIDFields)
}

// StockEntries 将库存服务的响应体转换为记录列表
// 非数组响应视为空列表，非对象元素视为空记录（数量为 0）
func StockEntries(payload any) []StockEntry {
	list, ok := payload.([]any)
	if !ok {
		return nil
	}
	entries := make([]StockEntry, 0, len(list))
	for _, raw := range list {
		record, _ := raw.(map[string]any)
		entries = append(entries, StockEntry(record))
	}
	return entries
}

// TotalQuantity 汇总所有分店的库存数量
func TotalQuantity(entries []StockEntry) float64 {
	var total float64
	for _, entry := range entries {
		total += entry.Quantity()
	}
	return total
}

// CoerceQuantity 将任意 JSON 值转换为数量
// 第二个返回值表示该值是否为数值；负数按 0 处理
func CoerceQuantity(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return f, true
}

// quantityOf 按字段顺序取第一个非空且可转换为数值的字段
func quantityOf(record map[string]any, fields []string) float64 {
	for _, field := range fields {
		v, ok := record[field]
		if !ok || v == nil {
			continue
		}
		if q, ok := CoerceQuantity(v); ok {
			return q
		}
	}
	return 0
}

func firstValue(record map[string]any, fields []string) any {
	for _, field := range fields {
		if v, ok := record[field]; ok && v != nil {
			return v
		}
	}
	return nil
}

// stringOf 将标识类字段统一转换为字符串
func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
