package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/stock_bff/internal/domain"
	"github.com/MorseWayne/stock_bff/internal/upstream"
)

// AvailabilityService 定义商品库存查询接口
type AvailabilityService interface {
	GetAvailability(ctx context.Context, productID, district string) (*domain.Availability, error)
}

// availabilityService 实现AvailabilityService接口
type availabilityService struct {
	client    upstream.Getter
	upstreams Upstreams
	logger    *zap.Logger
}

// NewAvailabilityService 创建商品库存查询服务实例
func NewAvailabilityService(client upstream.Getter, upstreams Upstreams, logger *zap.Logger) AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &availabilityService{
		client:    client,
		upstreams: upstreams,
		logger:    logger,
	}
}

// GetAvailability 并发查询商品信息与分店库存
// 商品目录返回 404 时 product 为 nil，其余任何失败都会原样返回
func (s *availabilityService) GetAvailability(ctx context.Context, productID, district string) (*domain.Availability, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidArgument)
	}

	// 失败后仍在运行的调用不随请求取消
	detached := context.WithoutCancel(ctx)
	fetches := []func(context.Context) (any, error){
		func(ctx context.Context) (any, error) {
			product, err := s.client.Get(ctx, s.upstreams.Catalog, productPath(productID), nil)
			if upstream.IsNotFound(err) {
				return nil, nil
			}
			return product, err
		},
		func(ctx context.Context) (any, error) {
			return s.client.Get(ctx, s.upstreams.Inventory, "/stock", stockQuery(productID, district))
		},
	}

	values, err := gather(len(fetches), func(i int) (any, error) {
		return fetches[i](detached)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("availability resolved",
		zap.String("product_id", productID),
		zap.String("district", district),
		zap.Bool("product_found", values[0] != nil),
	)

	return &domain.Availability{
		Product:  values[0],
		Branches: values[1],
	}, nil
}
