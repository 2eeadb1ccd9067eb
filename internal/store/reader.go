package store

import (
	"context"

	"geo-directory/internal/geo"
)

// 文档注释：单个工作单元内可用的只读查询集合
// 约束：关联数据一律按主键集合批量获取，由上层在内存中拼装，不逐行回查。
// 排序约定：地址按 id 升序；OrganizationsByAddresses/ByName/ByIDs 按机构 id 升序；
// OrganizationsByCategories 按传入分类 id 的顺序、同一分类内按机构 id 升序，允许重复。
type Reader interface {
	Categories(ctx context.Context) ([]Category, error)
	CategoriesByOrganizations(ctx context.Context, orgIDs []int64) (map[int64][]Category, error)

	AddressesAt(ctx context.Context, p geo.Point) ([]Address, error)
	AddressesWithin(ctx context.Context, center geo.Point, meters float64) ([]Address, error)
	AddressesInEnvelope(ctx context.Context, env geo.Envelope) ([]Address, error)
	AddressesByIDs(ctx context.Context, ids []int64) ([]Address, error)

	OrganizationsByIDs(ctx context.Context, ids []int64) ([]Organization, error)
	OrganizationsByAddresses(ctx context.Context, addressIDs []int64) ([]Organization, error)
	OrganizationsByCategories(ctx context.Context, categoryIDs []int64) ([]Organization, error)
	OrganizationsByName(ctx context.Context, pattern string) ([]Organization, error)
	PhoneNumbersByOrganizations(ctx context.Context, orgIDs []int64) (map[int64][]string, error)

	UserByKeyHash(ctx context.Context, hash string) (*User, error)
}

// Backend：以工作单元方式提供 Reader 的数据源（PostgreSQL 或内存快照）
// 约束：fn 返回错误、panic 或 ctx 取消时，本次工作单元必须回滚并把原始错误返回给调用方。
type Backend interface {
	Read(ctx context.Context, iso Isolation, fn func(ctx context.Context, r Reader) error) error
}

// Query：在一个工作单元内执行 fn 并返回其结果；失败时返回零值与原始错误
func Query[T any](ctx context.Context, b Backend, iso Isolation, fn func(ctx context.Context, r Reader) (T, error)) (T, error) {
	var out T
	err := b.Read(ctx, iso, func(ctx context.Context, r Reader) error {
		v, err := fn(ctx, r)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
