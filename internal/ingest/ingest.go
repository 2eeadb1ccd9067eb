// 包 ingest：离线数据通道，把目录快照导入 PostgreSQL，或为内存数据源定期重载快照
package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"geo-directory/internal/directory/memstore"
	"geo-directory/internal/logger"
	"geo-directory/internal/store"
)

// Counts：各表写入的行数
type Counts struct {
	Addresses              int
	Categories             int
	Organizations          int
	OrganizationCategories int
	PhoneNumbers           int
	APIKeys                int
}

// ImportSnapshot：在一个可串行化工作单元内把快照 UPSERT 到库表
// 背景：写入前先用内存数据源的校验规则检查快照，避免把违反约束的数据写到一半才失败
// 约束：任一语句失败整体回滚；显式 id 写入后把自增序列推进到最大 id 之后
func ImportSnapshot(ctx context.Context, st *store.Store, snap memstore.Snapshot) (Counts, error) {
	var c Counts
	if _, err := memstore.New(snap); err != nil {
		return c, fmt.Errorf("invalid snapshot: %w", err)
	}
	logger.L().Info("ingest_start",
		"addresses", len(snap.Addresses),
		"organizations", len(snap.Organizations),
		"categories", len(snap.Categories),
	)
	err := st.WithUnitOfWork(ctx, store.IsolationSerializable, func(ctx context.Context, tx *sql.Tx) error {
		for _, a := range snap.Addresses {
			if err := exec(ctx, tx, `INSERT INTO address(id, coordinates, country, city, street, home)
				VALUES($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET coordinates=EXCLUDED.coordinates, country=EXCLUDED.country,
				city=EXCLUDED.city, street=EXCLUDED.street, home=EXCLUDED.home`,
				a.ID, a.Lon, a.Lat, a.Country, a.City, a.Street, a.Home); err != nil {
				return err
			}
			c.Addresses++
		}
		// 先写入全部分类再回填父节点，父子在快照中的先后顺序无关紧要
		for _, cat := range snap.Categories {
			if err := exec(ctx, tx, `INSERT INTO category(id, parent_id, name) VALUES($1, NULL, $2)
				ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`, cat.ID, cat.Name); err != nil {
				return err
			}
			c.Categories++
		}
		for _, cat := range snap.Categories {
			var parent sql.NullInt64
			if cat.ParentID != nil {
				parent = sql.NullInt64{Int64: *cat.ParentID, Valid: true}
			}
			if err := exec(ctx, tx, `UPDATE category SET parent_id=$2 WHERE id=$1`, cat.ID, parent); err != nil {
				return err
			}
		}
		for _, o := range snap.Organizations {
			if err := exec(ctx, tx, `INSERT INTO organization(id, name, address_id) VALUES($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, address_id=EXCLUDED.address_id`,
				o.ID, o.Name, o.AddressID); err != nil {
				return err
			}
			c.Organizations++
		}
		for _, oc := range snap.OrganizationCategories {
			if err := exec(ctx, tx, `INSERT INTO organization_category(org_id, cat_id) VALUES($1, $2)
				ON CONFLICT DO NOTHING`, oc.OrgID, oc.CatID); err != nil {
				return err
			}
			c.OrganizationCategories++
		}
		for _, p := range snap.PhoneNumbers {
			if err := exec(ctx, tx, `INSERT INTO phone_number(number, org_id) VALUES($1, $2)
				ON CONFLICT (number) DO UPDATE SET org_id=EXCLUDED.org_id`, p.Number, p.OrgID); err != nil {
				return err
			}
			c.PhoneNumbers++
		}
		for _, k := range snap.APIKeys {
			if err := exec(ctx, tx, `INSERT INTO api_key(api_key, user_id) VALUES($1, $2)
				ON CONFLICT (api_key) DO UPDATE SET user_id=EXCLUDED.user_id`, k.APIKey, k.UserID); err != nil {
				return err
			}
			c.APIKeys++
		}
		for _, table := range []string{"address", "category", "organization"} {
			if err := exec(ctx, tx, `SELECT setval(pg_get_serial_sequence('`+table+`', 'id'), (SELECT COALESCE(MAX(id), 1) FROM `+table+`))`); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	logger.L().Info("ingest_done", "organizations", c.Organizations, "phone_numbers", c.PhoneNumbers)
	return c, nil
}

func exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}
