// Package migrations embeds SQL migration files for the SQLite stores.
//
// Two schemas are kept apart: index/ holds the per-index snapshot database
// (removed wholesale on rebuild) and state/ holds application state that
// must survive a rebuild, such as poller history.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed index/*.sql state/*.sql
var files embed.FS

// Index returns the migrations of the per-index snapshot database.
func Index() fs.FS {
	return sub("index")
}

// State returns the migrations of the application state database.
func State() fs.FS {
	return sub("state")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(files, dir)
	if err != nil {
		// Only reachable if the embed pattern above is changed.
		panic(err)
	}
	return fsys
}
