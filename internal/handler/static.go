package handler

import (
	_ "embed"
	"net/http"
)

//go:embed web/index.html
var indexPage []byte

// HandleIndex serves the control page at GET /.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(indexPage)
}
