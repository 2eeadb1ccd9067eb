package memstore

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"geo-directory/internal/geo"
	"geo-directory/internal/store"
)

// reader：在单个数据集上实现 store.Reader，排序约定与 SQL 实现一致
type reader struct {
	d *dataset
}

func (r *reader) Categories(ctx context.Context) ([]store.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]store.Category(nil), r.d.cats...), nil
}

func (r *reader) CategoriesByOrganizations(ctx context.Context, orgIDs []int64) (map[int64][]store.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[int64][]store.Category, len(orgIDs))
	for _, id := range orgIDs {
		for _, cid := range r.d.orgCats[id] {
			out[id] = append(out[id], r.d.catByID[cid])
		}
	}
	return out, nil
}

func (r *reader) AddressesAt(ctx context.Context, p geo.Point) ([]store.Address, error) {
	return r.filterAddresses(ctx, func(a store.Address) bool { return a.Point == p })
}

// AddressesWithin：包络框可用时先经 KD-Tree 取候选，否则扫描全部地址；最终以测地距离判定
func (r *reader) AddressesWithin(ctx context.Context, center geo.Point, meters float64) ([]store.Address, error) {
	keep := func(a store.Address) bool { return geo.Distance(center, a.Point) <= meters }
	env, ok := geo.RadiusBounds(center, meters)
	if !ok {
		return r.filterAddresses(ctx, keep)
	}
	return r.inBounds(ctx, env, keep)
}

// AddressesInEnvelope：按 geography 多边形语义判定（南北两边为大圆弧），候选框相应放宽
func (r *reader) AddressesInEnvelope(ctx context.Context, env geo.Envelope) ([]store.Address, error) {
	return r.inBounds(ctx, env.GeographyBounds(), func(a store.Address) bool { return env.Covers(a.Point) })
}

func (r *reader) inBounds(ctx context.Context, env geo.Envelope, keep func(store.Address) bool) ([]store.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []store.Address
	for _, a := range r.d.spatial.within(env, nil) {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *reader) AddressesByIDs(ctx context.Context, ids []int64) ([]store.Address, error) {
	want := idSet(ids)
	return r.filterAddresses(ctx, func(a store.Address) bool {
		_, ok := want[a.ID]
		return ok
	})
}

func (r *reader) filterAddresses(ctx context.Context, keep func(store.Address) bool) ([]store.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []store.Address
	for _, a := range r.d.addrs {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *reader) OrganizationsByIDs(ctx context.Context, ids []int64) ([]store.Organization, error) {
	want := idSet(ids)
	return r.filterOrganizations(ctx, func(o store.Organization) bool {
		_, ok := want[o.ID]
		return ok
	})
}

func (r *reader) OrganizationsByAddresses(ctx context.Context, addressIDs []int64) ([]store.Organization, error) {
	want := idSet(addressIDs)
	return r.filterOrganizations(ctx, func(o store.Organization) bool {
		_, ok := want[o.AddressID]
		return ok
	})
}

func (r *reader) OrganizationsByCategories(ctx context.Context, categoryIDs []int64) ([]store.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []store.Organization
	for _, cid := range categoryIDs {
		for _, oid := range r.d.catOrgs[cid] {
			out = append(out, r.d.orgByID[oid])
		}
	}
	return out, nil
}

func (r *reader) OrganizationsByName(ctx context.Context, pattern string) ([]store.Organization, error) {
	re := likePattern(pattern)
	return r.filterOrganizations(ctx, func(o store.Organization) bool { return re.MatchString(o.Name) })
}

func (r *reader) filterOrganizations(ctx context.Context, keep func(store.Organization) bool) ([]store.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []store.Organization
	for _, o := range r.d.orgs {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *reader) PhoneNumbersByOrganizations(ctx context.Context, orgIDs []int64) (map[int64][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[int64][]string, len(orgIDs))
	for _, id := range orgIDs {
		if p, ok := r.d.phones[id]; ok {
			out[id] = append([]string(nil), p...)
		}
	}
	return out, nil
}

func (r *reader) UserByKeyHash(ctx context.Context, hash string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, ok := r.d.keys[hash]
	if !ok {
		return nil, nil
	}
	return &store.User{ID: id}, nil
}

func idSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// likePattern：把 ILIKE 模式转换为正则（"%" 任意串、"_" 单个字符、"\" 转义），整串匹配且不区分大小写
// 末尾落单的 "\" 按字面量处理；服务层已先行拒绝这类模式
func likePattern(p string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	escaped := false
	for _, ch := range p {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(ch)))
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '%':
			b.WriteString(`.*`)
		case ch == '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	if escaped {
		b.WriteString(`\\`)
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}
