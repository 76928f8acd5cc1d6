package export

import (
	"encoding/json"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Read loads and decodes an export file. A missing or syntactically invalid
// file is a fatal input error.
func Read(path string) ([]Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read export file")
	}

	var conversations []Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, errors.Wrapf(err, "parse export file %s", path)
	}
	return conversations, nil
}

// Linearize flattens one conversation into time-ordered records. Messages
// are kept only when spoken by user or assistant and only when their content
// normalizes to non-empty text. The sort is stable and ascending by
// timestamp; untimed records order before all timed ones, and records with
// equal timestamps keep node-id order so the result is the same on every run.
//
// A node carrying a message without an author role is malformed input: the
// role field is mandatory whenever a message exists.
func Linearize(conv Conversation) ([]Record, error) {
	title := conv.Title
	if title == "" {
		title = DefaultTitle
	}

	ids := make([]string, 0, len(conv.Mapping))
	for id := range conv.Mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var records []Record
	for _, id := range ids {
		msg := conv.Mapping[id].Message
		if msg == nil {
			continue
		}
		if msg.Author == nil || msg.Author.Role == "" {
			return nil, errors.Errorf("conversation %q: node %s has a message without an author role", title, id)
		}

		role := msg.Author.Role
		if role != RoleUser && role != RoleAssistant {
			continue
		}

		text := Normalize(msg.Content)
		if text == "" {
			continue
		}

		records = append(records, Record{
			ConversationTitle: title,
			Role:              role,
			Text:              text,
			Timestamp:         timestampOf(msg.CreateTime),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// Assemble concatenates the linearization of every conversation, in export
// order. Only within-conversation ordering is meaningful.
func Assemble(conversations []Conversation) ([]Record, error) {
	var all []Record
	for _, conv := range conversations {
		records, err := Linearize(conv)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// timestampOf converts an epoch-seconds creation time to a UTC instant.
// Zero means the export carried no timestamp.
func timestampOf(createTime float64) time.Time {
	if createTime == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(createTime)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
