package main

import (
	"embed"
	"html/template"

	"github.com/poku-e/navhub/internal/prefs"
	"github.com/poku-e/navhub/internal/search"
)

//go:embed templates/*.html
var tmplFS embed.FS

var indexTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"mark": search.RenderHTML,
}).ParseFS(tmplFS, "templates/index.html"))

type pageData struct {
	Title   string
	Theme   prefs.Theme
	Engine  search.Engine
	Engines []search.Engine
	Query   string
	Result  search.Result
}
