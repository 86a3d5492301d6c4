package enrich

import (
	"strings"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	html := `<html><head><script>alert(1)</script></head>
<body><h1>SBIR  Phase I</h1><p>Awards up to
$275,000.</p></body></html>`

	got := HTMLToText(html)
	want := "SBIR Phase I Awards up to $275,000."
	if got != want {
		t.Fatalf("HTMLToText = %q, want %q", got, want)
	}
}

func TestHTMLToTextSeparatesBlocks(t *testing.T) {
	html := `<div><h2>Deadline</h2><ul><li>March 15, 2026</li><li>Rolling</li></ul></div>`

	got := HTMLToText(html)
	want := "Deadline March 15, 2026 Rolling"
	if got != want {
		t.Fatalf("HTMLToText = %q, want %q", got, want)
	}
}

func TestSanitizeHTMLStripsScripts(t *testing.T) {
	got := SanitizeHTML(`<p>ok</p><script>evil()</script><iframe src="x"></iframe>`)
	if strings.Contains(got, "script") || strings.Contains(got, "iframe") {
		t.Fatalf("unsafe markup survived: %q", got)
	}
	if !strings.Contains(got, "ok") {
		t.Fatalf("content lost: %q", got)
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("abcdef", 10); got != "abcdef" {
		t.Errorf("short string changed: %q", got)
	}
	if got := TruncateText("abcdefghij", 8); got != "abcde..." {
		t.Errorf("truncated = %q, want %q", got, "abcde...")
	}
}
