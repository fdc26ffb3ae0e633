package service

import (
	"context"
	"strings"
	"time"

	"github.com/bazaar-next/internal/broadcast"
	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
)

const (
	defaultTopSellersTTL   = 5 * time.Minute
	defaultTopSellersLimit = 8
	maxTopSellersLimit     = 50
)

// ProductService 商品目录服务：热销榜缓存与变更推送
type ProductService struct {
	repo repository.ProductRepository
	hub  *broadcast.Hub
	ttl  time.Duration
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, hub *broadcast.Hub, ttl time.Duration) *ProductService {
	if ttl <= 0 {
		ttl = defaultTopSellersTTL
	}
	return &ProductService{repo: repo, hub: hub, ttl: ttl}
}

// ProductView 对外展示的商品
type ProductView struct {
	ID              uint         `json:"id"`
	Slug            string       `json:"slug"`
	Name            string       `json:"name"`
	Price           models.Money `json:"price"`
	OriginalPrice   models.Money `json:"original_price"`
	Weight          float64      `json:"weight"` // kg
	Unit            string       `json:"unit,omitempty"`
	DubaiOnly       bool         `json:"dubai_only"`
	Image           string       `json:"image,omitempty"`
	ParentProductID *uint        `json:"parent_product_id,omitempty"`
	SoldQuantity    int64        `json:"sold_quantity"`
}

func newProductView(p *models.Product, locale string, sold int64) ProductView {
	return ProductView{
		ID:              p.ID,
		Slug:            p.Slug,
		Name:            p.LocalizedName(locale),
		Price:           p.Price,
		OriginalPrice:   p.OriginalPrice,
		Weight:          p.WeightKg(),
		Unit:            p.Unit,
		DubaiOnly:       p.DubaiOnly,
		Image:           p.Image,
		ParentProductID: p.ParentProductID,
		SoldQuantity:    sold,
	}
}

func topSellersKey(locale string) string {
	return constants.CacheKeyTopSellers + ":" + i18n.Normalize(locale)
}

// TopSellers 热销商品；无销售数据时按排序权重回退到上架商品
func (s *ProductService) TopSellers(ctx context.Context, limit int, locale string) ([]ProductView, error) {
	if limit <= 0 {
		limit = defaultTopSellersLimit
	}
	if limit > maxTopSellersLimit {
		limit = maxTopSellersLimit
	}
	key := topSellersKey(locale)
	var cached []ProductView
	hit, err := cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Warnw("top_sellers_cache_get_failed", "key", key, "error", err)
	}
	if hit {
		return truncateViews(cached, limit), nil
	}

	views, err := s.loadTopSellers(locale)
	if err != nil {
		logger.Errorw("top_sellers_load_failed", "error", err)
		return nil, ErrProductFetchFailed
	}
	if err := cache.SetJSON(ctx, key, views, s.ttl); err != nil {
		logger.Warnw("top_sellers_cache_set_failed", "key", key, "error", err)
	}
	return truncateViews(views, limit), nil
}

// loadTopSellers 一次加载上限数量，按 limit 截取
func (s *ProductService) loadTopSellers(locale string) ([]ProductView, error) {
	rows, err := s.repo.TopSellers(maxTopSellersLimit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		products, err := s.repo.ListActive(maxTopSellersLimit)
		if err != nil {
			return nil, err
		}
		views := make([]ProductView, 0, len(products))
		for i := range products {
			views = append(views, newProductView(&products[i], locale, 0))
		}
		return views, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.repo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	views := make([]ProductView, 0, len(rows))
	for _, row := range rows {
		product, ok := byID[row.ProductID]
		if !ok {
			continue
		}
		views = append(views, newProductView(product, locale, row.Quantity))
	}
	return views, nil
}

func truncateViews(views []ProductView, limit int) []ProductView {
	if len(views) > limit {
		return views[:limit]
	}
	return views
}

// ProductUpdateInput 商品变更通知
type ProductUpdateInput struct {
	Type      string      `json:"type"`
	ProductID uint        `json:"product_id"`
	Data      interface{} `json:"data"`
}

// Invalidate 清除热销缓存并向所有连接推送变更事件，返回本实例投递数
func (s *ProductService) Invalidate(ctx context.Context, input ProductUpdateInput) int {
	for _, locale := range []string{i18n.LocaleEN, i18n.LocaleAR} {
		if err := cache.Del(ctx, topSellersKey(locale)); err != nil {
			logger.Warnw("top_sellers_cache_del_failed", "locale", locale, "error", err)
		}
	}
	eventType := strings.TrimSpace(input.Type)
	switch eventType {
	case constants.ProductEventUpdated, constants.ProductEventDeleted:
	default:
		eventType = constants.ProductEventInvalidated
	}
	if s.hub == nil {
		return 0
	}
	delivered := s.hub.Publish(ctx, broadcast.Event{
		Type:      eventType,
		ProductID: input.ProductID,
		Data:      input.Data,
	})
	logger.Infow("product_update_broadcast", "type", eventType, "product_id", input.ProductID, "delivered", delivered)
	return delivered
}

// Hub 推送中心
func (s *ProductService) Hub() *broadcast.Hub {
	return s.hub
}
