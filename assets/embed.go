// Package assets 打包渲染面的样式表和脚本，视图页面只从这里加载资源。
package assets

import "embed"

// FS 渲染面静态资源
//
//go:embed viewer.css viewer.js
var FS embed.FS
