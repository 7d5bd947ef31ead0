// Package render builds the HTML markup of a chat transcript.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"map-chat/internal/chat"
)

var transcriptTmpl = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"image": imageSource,
}).Parse(
	`{{range .}}<div class="text-list-{{.Variant}}">` +
		`<img class="text-user-icon" src="{{image .Image}}" alt="">` +
		`<p>{{.Text}}</p>` +
		`</div>{{end}}`,
))

// Transcript renders messages in order, one block per message.
// Text and image references are escaped.
func Transcript(messages []chat.RenderedMessage) (string, error) {
	var buf bytes.Buffer
	if err := transcriptTmpl.Execute(&buf, messages); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// imageSource lets uploaded data:image URLs through, anything else goes through the regular URL filter
func imageSource(ref string) interface{} {
	if strings.HasPrefix(strings.ToLower(ref), "data:image/") {
		return template.URL(ref)
	}
	return ref
}
