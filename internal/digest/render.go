package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/LJTian/newsdigest/internal/processor"
)

var pageTmpl = template.Must(template.New("digest").Parse(`<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; }
.article { border-bottom: 1px solid #eee; padding-bottom: 15px; margin-bottom: 15px; }
.article:last-child { border-bottom: none; }
h2 a { color: #0066cc; text-decoration: none; }
h2 a:hover { text-decoration: underline; }
p { color: #333; }
small { color: #888; }
</style>
</head>
<body>
<h1>{{.Heading}}</h1>
{{- range .Articles}}
<div class="article">
<h2><a href="{{.Link}}">{{.Title}}</a></h2>
{{- if .Summary}}
<p>{{.Summary}}</p>
{{- end}}
<small>발행일: {{.Date}}</small>
</div>
{{- end}}
</body>
</html>
`))

// KoreanDate 例如 "2025년 07월 18일"
func KoreanDate(t time.Time) string {
	return fmt.Sprintf("%d년 %02d월 %02d일", t.Year(), int(t.Month()), t.Day())
}

// Heading 正文标题，例如 "[2025년 07월 18일] AITimes 신규 기사"
func Heading(sourceName string, now time.Time) string {
	return fmt.Sprintf("[%s] %s 신규 기사", KoreanDate(now), sourceName)
}

// Subject 邮件主题
func Subject(sourceName string, now time.Time) string {
	return Heading(sourceName, now) + " 알림"
}

// Render 生成 HTML 正文；now 应已转换到数据源时区
func Render(sourceName string, articles []processor.Article, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Heading  string
		Articles []processor.Article
	}{
		Heading:  Heading(sourceName, now),
		Articles: articles,
	})
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}
