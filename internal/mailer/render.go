package mailer

import (
	"html"
	"strings"
)

// RenderHTML converts the summary markdown into a self-contained HTML email
// body. The summary layout is fixed (h1 title, h2 sections, horizontal
// rules), so a line-based renderer covers it without a markdown library.
func RenderHTML(summary string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Helvetica Neue', Arial, 'PingFang TC', 'Microsoft JhengHei', sans-serif; color: #333; max-width: 680px; margin: 0 auto; padding: 24px;">
`)
	b.WriteString(renderBody(summary))
	b.WriteString(`<p style="color: #999; font-size: 12px;">此郵件由會議系統自動發送，請勿直接回覆。</p>
</body>
</html>
`)
	return b.String()
}

func renderBody(summary string) string {
	var b strings.Builder
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		b.WriteString("<p>" + strings.Join(para, "<br>") + "</p>\n")
		para = nil
	}

	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimRight(line, " \r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "## "):
			flush()
			b.WriteString(`<h2 style="color: #2c5282; border-bottom: 1px solid #e2e8f0; padding-bottom: 4px;">` +
				html.EscapeString(strings.TrimPrefix(line, "## ")) + "</h2>\n")
		case strings.HasPrefix(line, "# "):
			flush()
			b.WriteString(`<h1 style="color: #1a365d;">` +
				html.EscapeString(strings.TrimPrefix(line, "# ")) + "</h1>\n")
		case line == "---":
			flush()
			b.WriteString(`<hr style="border: none; border-top: 1px solid #e2e8f0;">` + "\n")
		default:
			para = append(para, html.EscapeString(line))
		}
	}
	flush()
	return b.String()
}
