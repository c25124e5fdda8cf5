// Package static embeds the page script and stylesheet.
package static

import "embed"

//go:embed app.js app.css
var FS embed.FS
