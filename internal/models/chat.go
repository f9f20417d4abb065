package models

import (
	"encoding/json"
	"strings"
)

// Chat is a rich text component: text plus nested child components.
// Servers may also send a bare JSON string, which decodes into Text.
type Chat struct {
	Text  string `json:"text"`
	Extra []Chat `json:"extra,omitempty"`
}

// UnmarshalJSON accepts either a chat object or a plain string.
func (c *Chat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Chat{Text: s}
		return nil
	}

	type plain Chat
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Chat(p)

	return nil
}

// String flattens the component tree into plain text, depth-first.
func (c Chat) String() string {
	var sb strings.Builder
	c.writeTo(&sb)
	return sb.String()
}

func (c Chat) writeTo(sb *strings.Builder) {
	sb.WriteString(c.Text)
	for _, e := range c.Extra {
		e.writeTo(sb)
	}
}
