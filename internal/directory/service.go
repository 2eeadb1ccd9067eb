// 包 directory：机构目录的查询解析引擎（分类子树展开、空间匹配、去重拼装）
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"geo-directory/internal/geo"
	"geo-directory/internal/metrics"
	"geo-directory/internal/store"
)

// ErrInvalidArgument 参数越界（经纬度、半径、区域尺寸）
var ErrInvalidArgument = errors.New("invalid argument")

// Service：对路由层暴露的查询操作集合
// 约束：每次查询恰好运行在一个默认隔离级别的工作单元内，不跨查询持有工作单元
type Service struct {
	backend store.Backend
	log     *slog.Logger
	phones  bool
}

// Option：NewService 的可选装配项
type Option func(*Service)

// WithPhoneNumbers：在记录中附带机构电话（phone_numbers），默认关闭以保持既有记录格式
func WithPhoneNumbers() Option {
	return func(s *Service) { s.phones = true }
}

func NewService(b store.Backend, l *slog.Logger, opts ...Option) *Service {
	s := &Service{backend: b, log: l}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ByCoordinates：与给定坐标完全相同的地址上的机构
func (s *Service) ByCoordinates(ctx context.Context, lon, lat float64) ([]Record, error) {
	p := geo.Point{Lon: lon, Lat: lat}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidArgument)
	}
	return s.list(ctx, "coords", func(ctx context.Context, r store.Reader) ([]Record, error) {
		addrs, err := r.AddressesAt(ctx, p)
		if err != nil {
			return nil, err
		}
		return s.fromAddresses(ctx, r, addrs)
	})
}

// ByID：单个机构；不存在时返回 nil, nil
func (s *Service) ByID(ctx context.Context, id int64) (*Record, error) {
	return run(ctx, s, "id", func(ctx context.Context, r store.Reader) (*Record, error) {
		orgs, err := r.OrganizationsByIDs(ctx, []int64{id})
		if err != nil {
			return nil, err
		}
		recs, err := s.complete(ctx, r, orgs, nil)
		if err != nil || len(recs) == 0 {
			return nil, err
		}
		return &recs[0], nil
	})
}

// ByCategoryTree：分类及其全部后代下的机构
func (s *Service) ByCategoryTree(ctx context.Context, categoryID int64) ([]Record, error) {
	return s.list(ctx, "category", func(ctx context.Context, r store.Reader) ([]Record, error) {
		tree, err := ExpandTree(ctx, r, categoryID)
		if err != nil {
			return nil, err
		}
		if len(tree) == 0 {
			return []Record{}, nil
		}
		orgs, err := r.OrganizationsByCategories(ctx, categoryIDs(tree))
		if err != nil {
			return nil, err
		}
		return s.complete(ctx, r, orgs, nil)
	})
}

// ByName：名称匹配（ILIKE 语义，"%" 通配任意串，不区分大小写）
// 约束：模式以未转义的 "\" 结尾时库表侧会拒绝执行，两种后端统一按参数错误处理
func (s *Service) ByName(ctx context.Context, pattern string) ([]Record, error) {
	if danglingEscape(pattern) {
		return nil, fmt.Errorf("%w: name pattern must not end with escape character", ErrInvalidArgument)
	}
	return s.list(ctx, "name", func(ctx context.Context, r store.Reader) ([]Record, error) {
		orgs, err := r.OrganizationsByName(ctx, pattern)
		if err != nil {
			return nil, err
		}
		return s.complete(ctx, r, orgs, nil)
	})
}

// ByRadius：测地距离不超过 meters 的地址上的机构
func (s *Service) ByRadius(ctx context.Context, lon, lat, meters float64) ([]Record, error) {
	center := geo.Point{Lon: lon, Lat: lat}
	if !center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidArgument)
	}
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters < 0 {
		return nil, fmt.Errorf("%w: radius must be a non-negative number of meters", ErrInvalidArgument)
	}
	return s.list(ctx, "radius", func(ctx context.Context, r store.Reader) ([]Record, error) {
		addrs, err := r.AddressesWithin(ctx, center, meters)
		if err != nil {
			return nil, err
		}
		return s.fromAddresses(ctx, r, addrs)
	})
}

// ByArea：以中心点与高、宽（米）构造的区域内的机构，区域构造见 geo.AreaEnvelope
func (s *Service) ByArea(ctx context.Context, lon, lat, height, width float64) ([]Record, error) {
	center := geo.Point{Lon: lon, Lat: lat}
	if !center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidArgument)
	}
	if !(height > 0) || !(width > 0) || math.IsInf(height, 0) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("%w: height and width must be positive meters", ErrInvalidArgument)
	}
	env := geo.AreaEnvelope(center, height, width)
	return s.list(ctx, "area", func(ctx context.Context, r store.Reader) ([]Record, error) {
		addrs, err := r.AddressesInEnvelope(ctx, env)
		if err != nil {
			return nil, err
		}
		return s.fromAddresses(ctx, r, addrs)
	})
}

// CategoryTree：分类子树本身（根在首位）
func (s *Service) CategoryTree(ctx context.Context, categoryID int64) ([]store.Category, error) {
	return run(ctx, s, "category_tree", func(ctx context.Context, r store.Reader) ([]store.Category, error) {
		return ExpandTree(ctx, r, categoryID)
	})
}

func danglingEscape(pattern string) bool {
	n := 0
	for i := len(pattern) - 1; i >= 0 && pattern[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func (s *Service) list(ctx context.Context, op string, fn func(ctx context.Context, r store.Reader) ([]Record, error)) ([]Record, error) {
	recs, err := run(ctx, s, op, fn)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		metrics.EmptyResultsTotal.WithLabelValues(op).Inc()
	}
	return recs, nil
}

func run[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context, r store.Reader) (T, error)) (T, error) {
	start := time.Now()
	metrics.QueriesTotal.WithLabelValues(op).Inc()
	out, err := store.Query(ctx, s.backend, store.IsolationDefault, fn)
	ms := time.Since(start).Milliseconds()
	metrics.QueryDurationMs.WithLabelValues(op).Observe(float64(ms))
	if err != nil {
		metrics.QueryErrorsTotal.WithLabelValues(op).Inc()
		return out, err
	}
	s.log.Debug("query_done", "op", op, "duration_ms", ms)
	return out, nil
}

// 按地址顺序展开其上的机构（同一地址内按机构 id），再批量补齐关联数据
func (s *Service) fromAddresses(ctx context.Context, r store.Reader, addrs []store.Address) ([]Record, error) {
	if len(addrs) == 0 {
		return []Record{}, nil
	}
	ids := make([]int64, len(addrs))
	byID := make(map[int64]store.Address, len(addrs))
	for i, a := range addrs {
		ids[i] = a.ID
		byID[a.ID] = a
	}
	orgs, err := r.OrganizationsByAddresses(ctx, ids)
	if err != nil {
		return nil, err
	}
	grouped := make(map[int64][]store.Organization, len(addrs))
	for _, o := range orgs {
		grouped[o.AddressID] = append(grouped[o.AddressID], o)
	}
	ordered := make([]store.Organization, 0, len(orgs))
	for _, a := range addrs {
		ordered = append(ordered, grouped[a.ID]...)
	}
	return s.complete(ctx, r, ordered, byID)
}

// complete：批量读取地址、分类（启用时含电话）后在内存中拼装；addrs 为 nil 时按机构引用的地址 id 读取
func (s *Service) complete(ctx context.Context, r store.Reader, orgs []store.Organization, addrs map[int64]store.Address) ([]Record, error) {
	if len(orgs) == 0 {
		return []Record{}, nil
	}
	orgIDs, addrIDs := keySets(orgs)
	if addrs == nil {
		rows, err := r.AddressesByIDs(ctx, addrIDs)
		if err != nil {
			return nil, err
		}
		addrs = make(map[int64]store.Address, len(rows))
		for _, a := range rows {
			addrs[a.ID] = a
		}
	}
	cats, err := r.CategoriesByOrganizations(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	var phones map[int64][]string
	if s.phones {
		if phones, err = r.PhoneNumbersByOrganizations(ctx, orgIDs); err != nil {
			return nil, err
		}
	}
	return Assemble(orgs, addrs, cats, phones), nil
}
