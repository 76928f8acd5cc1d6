// Package export reads a ChatGPT-style conversation archive and flattens it
// into ordered plain-text records. The archive is a JSON array of
// conversations; each conversation holds its message history as an unordered
// mapping of node id to node. Nothing here assumes a traversal order —
// chronology is imposed afterwards by sorting on message timestamps.
package export

import (
	"encoding/json"
	"time"
)

// Speaker roles that survive linearization. Everything else (system, tool,
// browser, ...) is filtered out.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is used for conversations exported without a title.
const DefaultTitle = "Untitled-Chat"

// Conversation is one exported conversation thread.
type Conversation struct {
	Title   string          `json:"title"`
	Mapping map[string]Node `json:"mapping"`
}

// Node is one entry in a conversation's message tree. Structural nodes
// (roots, forks) carry no message.
type Node struct {
	Message *Message `json:"message"`
}

// Message is the consumed subset of an exported message. CreateTime is
// seconds since epoch; exports predating timestamps omit it, and some write
// an explicit zero, which is treated the same as absent.
type Message struct {
	Author     *Author `json:"author"`
	Content    Content `json:"content"`
	CreateTime float64 `json:"create_time"`
}

// Author identifies the speaker of a message.
type Author struct {
	Role string `json:"role"`
}

// Record is a normalized, flattened message: one row of the corpus handed to
// the clusterer and the store. Text is never empty. A zero Timestamp means
// the message carried no creation time.
type Record struct {
	ConversationTitle string
	Role              string
	Text              string
	Timestamp         time.Time
}

// ContentKind tags the recognized shapes of a message's content value.
// The export format changed several times; content may be a plain string, an
// object with a "parts" sequence, an object with a direct text field, or a
// bare sequence. Anything else (binary payloads, image pointers) is
// unsupported and projects to empty text.
type ContentKind int

const (
	ContentAbsent ContentKind = iota
	ContentParts
	ContentObject
	ContentText
	ContentSequence
	ContentUnsupported
)

// Content is a closed variant over the recognized content shapes.
type Content struct {
	kind     ContentKind
	text     string
	elements []any
	fields   map[string]any
}

// Kind reports which shape this content value decoded as.
func (c Content) Kind() ContentKind { return c.kind }

// UnmarshalJSON dispatches on the runtime shape of the content value.
// Unrecognized shapes decode successfully as ContentUnsupported — a lossy
// projection, not an error.
func (c *Content) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		c.kind = ContentAbsent
	case string:
		c.kind = ContentText
		c.text = val
	case map[string]any:
		if parts, ok := val["parts"].([]any); ok {
			c.kind = ContentParts
			c.elements = parts
		} else {
			c.kind = ContentObject
			c.fields = val
		}
	case []any:
		c.kind = ContentSequence
		c.elements = val
	default:
		c.kind = ContentUnsupported
	}
	return nil
}
