package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql mysql/*.sql
var files embed.FS

// SQLite 返回 SQLite 方言的迁移文件。
func SQLite() fs.FS {
	return mustSub("sqlite")
}

// MySQL 返回 MySQL 方言的迁移文件。
func MySQL() fs.FS {
	return mustSub("mysql")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
