package surface

import (
	"html/template"
	"io"
)

var headerTemplate = template.Must(template.New("header").Parse(
	`<tr>{{range .}}<th>{{.}}</th>{{end}}</tr>`))

var bodyTemplate = template.Must(template.New("body").Parse(
	`{{range .}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}`))

// ViewPage 视图页面参数
type ViewPage struct {
	Title     string
	SessionID string
	Token     string
	AssetPath string
	PageSize  int
	Header    template.HTML
	Body      template.HTML
}

var viewTemplate = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.AssetPath}}viewer.css">
</head>
<body data-session="{{.SessionID}}" data-token="{{.Token}}" data-page-size="{{.PageSize}}">
<header class="toolbar">
<span class="title">{{.Title}}</span>
<button type="button" data-action="prev">&lsaquo; Prev</button>
<span id="page-label">Page 1</span>
<button type="button" data-action="next">Next &rsaquo;</button>
<button type="button" data-action="reload">Reload</button>
<span id="status" class="status"></span>
</header>
<table id="sheet">
<thead>{{.Header}}</thead>
<tbody id="rows">{{.Body}}</tbody>
</table>
<script nonce="{{.Token}}" src="{{.AssetPath}}viewer.js"></script>
</body>
</html>
`))

// RenderView 输出完整的视图页面
func RenderView(w io.Writer, page ViewPage) error {
	return viewTemplate.Execute(w, page)
}
