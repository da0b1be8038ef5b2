// Package result normalizes heterogeneous MCP tool results into the wire
// shape served by the daemon: text payloads become {type:"text", content},
// structured payloads keep their field mapping, and anything else falls back
// to its string representation.
package result

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

type kind int

const (
	kindText kind = iota
	kindStructured
	kindRaw
)

// Item is one normalized result entry.
type Item struct {
	kind   kind
	text   string
	fields map[string]any
	raw    string
}

// Text builds a text item.
func Text(s string) Item {
	return Item{kind: kindText, text: s}
}

// Structured builds an item from a field mapping.
func Structured(fields map[string]any) Item {
	return Item{kind: kindStructured, fields: fields}
}

// Raw builds a fallback item from a string representation.
func Raw(s string) Item {
	return Item{kind: kindRaw, raw: s}
}

// MarshalJSON emits the daemon wire format.
func (i Item) MarshalJSON() ([]byte, error) {
	switch i.kind {
	case kindText:
		return json.Marshal(map[string]string{"type": "text", "content": i.text})
	case kindStructured:
		return json.Marshal(i.fields)
	default:
		return json.Marshal(i.raw)
	}
}

// Render formats an item for terminal display: text items print their
// content, structured items print indented JSON, raw items print verbatim.
func (i Item) Render() string {
	switch i.kind {
	case kindText:
		return i.text
	case kindStructured:
		data, err := json.MarshalIndent(i.fields, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", i.fields)
		}
		return string(data)
	default:
		return i.raw
	}
}

// Normalize converts an MCP call result into wire items.
func Normalize(res *mcp.CallToolResult) []Item {
	if res == nil {
		return nil
	}

	items := make([]Item, 0, len(res.Content))
	for _, content := range res.Content {
		items = append(items, normalizeContent(content))
	}

	if len(items) == 0 && res.StructuredContent != nil {
		if fields, ok := res.StructuredContent.(map[string]any); ok {
			items = append(items, Structured(fields))
		} else {
			items = append(items, Raw(fmt.Sprintf("%v", res.StructuredContent)))
		}
	}
	return items
}

func normalizeContent(content mcp.Content) Item {
	switch c := content.(type) {
	case mcp.TextContent:
		return Text(c.Text)
	case *mcp.TextContent:
		return Text(c.Text)
	default:
		// Non-text content keeps its field mapping when it has one.
		raw, err := json.Marshal(content)
		if err != nil {
			return Raw(fmt.Sprintf("%v", content))
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
			return Raw(strings.TrimSpace(string(raw)))
		}
		return Structured(fields)
	}
}

// ParseItems decodes the daemon's result array back into items, used by the
// launcher to render responses.
func ParseItems(raw json.RawMessage) ([]Item, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]any
		if err := json.Unmarshal(entry, &fields); err == nil {
			if typ, _ := fields["type"].(string); typ == "text" {
				if content, ok := fields["content"].(string); ok {
					items = append(items, Text(content))
					continue
				}
			}
			items = append(items, Structured(fields))
			continue
		}

		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			items = append(items, Raw(s))
			continue
		}
		items = append(items, Raw(strings.TrimSpace(string(entry))))
	}
	return items, nil
}
