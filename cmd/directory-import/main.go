// 数据导入工具：把目录快照（JSON）写入 PostgreSQL，可重复执行
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"geo-directory/internal/directory/memstore"
	"geo-directory/internal/ingest"
	"geo-directory/internal/logger"
	"geo-directory/internal/migrate"
	"geo-directory/internal/store"
	"geo-directory/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()

	path := flag.String("snapshot", utils.EnvString("DIRECTORY_SNAPSHOT", "data/directory/snapshot.json"), "snapshot file to import")
	skipSchema := flag.Bool("skip-schema", false, "do not create missing tables")
	flag.Parse()

	snap, err := memstore.LoadSnapshot(*path)
	if err != nil {
		l.Error("snapshot_read_error", "path", *path, "err", err)
		os.Exit(1)
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if !*skipSchema {
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
	}
	c, err := ingest.ImportSnapshot(ctx, store.AttachDB(db), snap)
	if err != nil {
		l.Error("import_error", "path", *path, "err", err)
		os.Exit(1)
	}
	l.Info("import_ok", "path", *path, "addresses", c.Addresses, "organizations", c.Organizations,
		"categories", c.Categories, "api_keys", c.APIKeys)
}
