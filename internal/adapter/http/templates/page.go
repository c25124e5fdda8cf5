// Package templates renders the page and the fragments the page script swaps
// in as session events arrive. Markup lives in page.templ; run
// `templ generate` after editing it.
package templates

import "github.com/bnema/ffpoc/internal/domain"

const Title = "FFmpeg WASM POC"

// LoadingHint is shown in place of the tool box until the engine is ready.
const LoadingHint = "Loading FFmpeg... (Check console for details)"

// PageData is everything the page needs for one render.
type PageData struct {
	Snapshot  domain.Snapshot
	CSRFToken string
	// PreviewTag is "video" or "audio"; empty hides the preview element.
	PreviewTag string
}

func lastSeq(lines []domain.LogLine) int64 {
	if len(lines) == 0 {
		return 0
	}
	return lines[len(lines)-1].Seq
}
