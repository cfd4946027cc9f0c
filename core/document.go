package core

import (
	"fmt"
	"sort"
	"strings"
)

// Document is a unit of context handed to the model: a static context entry
// configured on the agent or a result of a similarity search.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Render formats the document as a tagged block. Metadata keys are emitted in
// sorted order so rendering is deterministic.
func (d Document) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<document id=%q>\n", d.ID)
	if len(d.Metadata) > 0 {
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, d.Metadata[k])
		}
	}
	b.WriteString(d.Content)
	b.WriteString("\n</document>")
	return b.String()
}

// RenderDocuments joins the rendered documents, one block per document, in
// the given order. It returns "" for no documents.
func RenderDocuments(docs []Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Render())
	}
	return strings.Join(parts, "\n")
}
