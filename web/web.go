// Package web serves the browser frontend bundled into the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed public
var public embed.FS

// Files is the frontend tree rooted at public/.
func Files() fs.FS {
	sub, err := fs.Sub(public, "public")
	if err != nil {
		panic(err)
	}
	return sub
}

func Handler() http.Handler {
	return http.FileServer(http.FS(Files()))
}
