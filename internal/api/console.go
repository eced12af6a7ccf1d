package api

import (
	_ "embed"
	"net/http"
)

//go:embed console.html
var consoleHTML []byte

func consoleHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(consoleHTML)
	})
}
