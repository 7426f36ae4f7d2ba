package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .Link}}<p><a href="{{.Link}}">{{.Link}}</a></p>
{{end}}</body>
</html>`))

// RenderHTML wraps a plain-text body in the standard HTML layout. Each line
// becomes an escaped paragraph; link, when set, is rendered as an anchor.
func RenderHTML(text, link string) (string, error) {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" && line != link {
			paragraphs = append(paragraphs, line)
		}
	}

	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Paragraphs []string
		Link       string
	}{paragraphs, link})
	if err != nil {
		return "", fmt.Errorf("render email layout: %w", err)
	}
	return buf.String(), nil
}
