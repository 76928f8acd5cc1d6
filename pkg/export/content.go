package export

import "strings"

// candidateKeys is the ordered list of fields probed for text inside
// structured content elements. The order is an external contract inherited
// from the export format: when several keys are present, the earliest wins.
var candidateKeys = [...]string{"text", "value", "caption", "alt"}

// Normalize projects a content value of any recognized shape onto a single
// plain-text string with no surrounding whitespace. Non-text content
// normalizes to "" and is dropped by the linearizer.
func Normalize(c Content) string {
	switch c.kind {
	case ContentText:
		return strings.TrimSpace(c.text)
	case ContentParts, ContentSequence:
		return flattenParts(c.elements)
	case ContentObject:
		if s, ok := firstCandidate(c.fields); ok {
			return strings.TrimSpace(s)
		}
		return ""
	default:
		return ""
	}
}

// flattenParts joins the text carried by a parts sequence. Plain strings are
// kept as-is; structured elements contribute their first candidate field;
// anything else contributes nothing.
func flattenParts(elements []any) string {
	var out []string
	for _, el := range elements {
		switch v := el.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if s, ok := firstCandidate(v); ok {
				out = append(out, s)
			}
		}
	}
	return strings.TrimSpace(strings.Join(out, " "))
}

func firstCandidate(fields map[string]any) (string, bool) {
	for _, key := range candidateKeys {
		if s, ok := fields[key].(string); ok {
			return s, true
		}
	}
	return "", false
}
