package domain

import "errors"

// ErrInvalidArgument 调用方传入的参数不满足前置条件，在发起任何上游调用前返回
var ErrInvalidArgument = errors.New("invalid argument")

// Availability 商品在各分店的库存情况
// Product 为商品目录的原始响应，商品不存在时为 nil；
// Branches 为库存服务的原始响应，不做汇总或过滤
type Availability struct {
	Product  any `json:"product"`
	Branches any `json:"branches"`
}
