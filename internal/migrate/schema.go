// 包 migrate：目录库表结构的幂等创建
package migrate

import (
	"context"
	"database/sql"

	"geo-directory/internal/logger"
)

// schemaStatements：建表顺序即依赖顺序（地址 → 机构 → 分类 → 关联 → 电话 → 密钥）
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS address (
		id BIGSERIAL PRIMARY KEY,
		coordinates geography(POINT, 4326) NOT NULL UNIQUE,
		country TEXT NOT NULL,
		city TEXT NOT NULL,
		street TEXT NOT NULL,
		home TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_address_coordinates ON address USING GIST (coordinates)`,
	`CREATE TABLE IF NOT EXISTS organization (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address_id BIGINT NOT NULL REFERENCES address(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organization_address ON organization(address_id)`,
	`CREATE TABLE IF NOT EXISTS category (
		id BIGSERIAL PRIMARY KEY,
		parent_id BIGINT REFERENCES category(id),
		name TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_category_parent ON category(parent_id)`,
	`CREATE TABLE IF NOT EXISTS organization_category (
		org_id BIGINT NOT NULL REFERENCES organization(id),
		cat_id BIGINT NOT NULL REFERENCES category(id),
		PRIMARY KEY (org_id, cat_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organization_category_cat ON organization_category(cat_id)`,
	`CREATE TABLE IF NOT EXISTS phone_number (
		number TEXT PRIMARY KEY,
		org_id BIGINT NOT NULL REFERENCES organization(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phone_number_org ON phone_number(org_id)`,
	`CREATE TABLE IF NOT EXISTS api_key (
		api_key TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL
	)`,
}

// 背景：首次运行自动创建所需表与索引，保障后续查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；任一语句失败即返回，已执行的语句不回退
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range schemaStatements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			logger.L().Error("schema_exec_error", "idx", i, "err", err)
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
