package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"geo-directory/internal/geo"

	"github.com/lib/pq"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pgReader：基于 PostGIS 的 Reader 实现，绑定在单个事务上
type pgReader struct {
	q querier
}

const addressColumns = `a.id, ST_X(a.coordinates::geometry), ST_Y(a.coordinates::geometry), a.country, a.city, a.street, a.home`

func (r *pgReader) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, parent_id, name FROM category ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgReader) CategoriesByOrganizations(ctx context.Context, orgIDs []int64) (map[int64][]Category, error) {
	out := make(map[int64][]Category, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx, `
        SELECT oc.org_id, c.id, c.parent_id, c.name
        FROM organization_category oc
        JOIN category c ON c.id = oc.cat_id
        WHERE oc.org_id = ANY($1)
        ORDER BY oc.org_id, c.id`, pq.Array(orgIDs))
	if err != nil {
		return nil, fmt.Errorf("select organization categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var orgID int64
		var c Category
		var parent sql.NullInt64
		if err := rows.Scan(&orgID, &c.ID, &parent, &c.Name); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := parent.Int64
			c.ParentID = &p
		}
		out[orgID] = append(out[orgID], c)
	}
	return out, rows.Err()
}

func (r *pgReader) AddressesAt(ctx context.Context, p geo.Point) ([]Address, error) {
	return r.addresses(ctx, "address at point", `
        SELECT `+addressColumns+`
        FROM address a
        WHERE ST_Equals(a.coordinates::geometry, ST_SetSRID(ST_MakePoint($1, $2), 4326))
        ORDER BY a.id`, p.Lon, p.Lat)
}

// 测地距离：geography 上的 ST_DWithin 以椭球面计算，单位为米
func (r *pgReader) AddressesWithin(ctx context.Context, center geo.Point, meters float64) ([]Address, error) {
	return r.addresses(ctx, "address within radius", `
        SELECT `+addressColumns+`
        FROM address a
        WHERE ST_DWithin(a.coordinates, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
        ORDER BY a.id`, center.Lon, center.Lat, meters)
}

func (r *pgReader) AddressesInEnvelope(ctx context.Context, env geo.Envelope) ([]Address, error) {
	return r.addresses(ctx, "address in envelope", `
        SELECT `+addressColumns+`
        FROM address a
        WHERE ST_Intersects(a.coordinates, ST_MakeEnvelope($1, $2, $3, $4, 4326)::geography)
        ORDER BY a.id`, env.MinLon, env.MinLat, env.MaxLon, env.MaxLat)
}

func (r *pgReader) AddressesByIDs(ctx context.Context, ids []int64) ([]Address, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.addresses(ctx, "address by ids", `
        SELECT `+addressColumns+`
        FROM address a
        WHERE a.id = ANY($1)
        ORDER BY a.id`, pq.Array(ids))
}

func (r *pgReader) addresses(ctx context.Context, what string, query string, args ...any) ([]Address, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}
	defer rows.Close()
	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.Point.Lon, &a.Point.Lat, &a.Country, &a.City, &a.Street, &a.House); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgReader) OrganizationsByIDs(ctx context.Context, ids []int64) ([]Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.organizations(ctx, "organization by ids", `
        SELECT o.id, o.name, o.address_id FROM organization o
        WHERE o.id = ANY($1)
        ORDER BY o.id`, pq.Array(ids))
}

func (r *pgReader) OrganizationsByAddresses(ctx context.Context, addressIDs []int64) ([]Organization, error) {
	if len(addressIDs) == 0 {
		return nil, nil
	}
	return r.organizations(ctx, "organization by addresses", `
        SELECT o.id, o.name, o.address_id FROM organization o
        WHERE o.address_id = ANY($1)
        ORDER BY o.id`, pq.Array(addressIDs))
}

// 每个命中的 (分类, 机构) 组合各返回一行，去重交给拼装层
func (r *pgReader) OrganizationsByCategories(ctx context.Context, categoryIDs []int64) ([]Organization, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	return r.organizations(ctx, "organization by categories", `
        SELECT o.id, o.name, o.address_id
        FROM organization_category oc
        JOIN organization o ON o.id = oc.org_id
        WHERE oc.cat_id = ANY($1::bigint[])
        ORDER BY array_position($1::bigint[], oc.cat_id::bigint), o.id`, pq.Array(categoryIDs))
}

func (r *pgReader) OrganizationsByName(ctx context.Context, pattern string) ([]Organization, error) {
	return r.organizations(ctx, "organization by name", `
        SELECT o.id, o.name, o.address_id FROM organization o
        WHERE o.name ILIKE $1
        ORDER BY o.id`, pattern)
}

func (r *pgReader) organizations(ctx context.Context, what string, query string, args ...any) ([]Organization, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", what, err)
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.AddressID); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *pgReader) PhoneNumbersByOrganizations(ctx context.Context, orgIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx, `
        SELECT org_id, number FROM phone_number
        WHERE org_id = ANY($1)
        ORDER BY org_id, number`, pq.Array(orgIDs))
	if err != nil {
		return nil, fmt.Errorf("select phone numbers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var orgID int64
		var number string
		if err := rows.Scan(&orgID, &number); err != nil {
			return nil, err
		}
		out[orgID] = append(out[orgID], number)
	}
	return out, rows.Err()
}

func (r *pgReader) UserByKeyHash(ctx context.Context, hash string) (*User, error) {
	var u User
	err := r.q.QueryRowContext(ctx, `SELECT user_id FROM api_key WHERE api_key=$1 LIMIT 1`, hash).Scan(&u.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select api key: %w", err)
	}
	return &u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(s rowScanner) (Category, error) {
	var c Category
	var parent sql.NullInt64
	if err := s.Scan(&c.ID, &parent, &c.Name); err != nil {
		return Category{}, err
	}
	if parent.Valid {
		p := parent.Int64
		c.ParentID = &p
	}
	return c, nil
}
