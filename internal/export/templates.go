package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("Jan 2, 2006 15:04 MST")
	},
}).Parse(documentHTML))

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	Author      string
	Revision    string
	UpdatedAt   time.Time
}

// RenderDocumentHTML renders the standalone export page.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const documentHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #1d1d1f; }
    h1.title { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #ccc; padding: 0.25rem 0.5rem; }
    mark { background: #fff3a3; }
    .rating { font-weight: bold; }
  </style>
</head>
<body>
  <h1 class="title">{{.Title}}</h1>
  <div class="meta">
    {{- with .Author}}{{.}}{{end}}
    {{- with .Revision}} | revision {{.}}{{end}}
    {{- with formatDate .UpdatedAt}} | {{.}}{{end -}}
  </div>
  <article>{{.ContentHTML}}</article>
</body>
</html>`

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
		if b.Len() >= 50 {
			break
		}
	}
	if b.Len() == 0 {
		return "draft"
	}
	return b.String()
}
