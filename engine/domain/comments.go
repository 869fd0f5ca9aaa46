package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerComment pairs an answer id with that answer's comments.
type AnswerComment struct {
	AnswerID int64
	Comments []Comment
}

// AnswerComments maps answer ids to comment lists. Keys are unique and kept in
// answer order. It encodes as a JSON object keyed by answer id.
type AnswerComments []AnswerComment

// Get returns the comments recorded for an answer.
func (m AnswerComments) Get(answerID int64) ([]Comment, bool) {
	for _, ac := range m {
		if ac.AnswerID == answerID {
			return ac.Comments, true
		}
	}
	return nil, false
}

// Keys returns the answer ids in order.
func (m AnswerComments) Keys() []int64 {
	keys := make([]int64, len(m))
	for i, ac := range m {
		keys[i] = ac.AnswerID
	}
	return keys
}

// MarshalJSON writes the pairs as an object, preserving order.
func (m AnswerComments) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, ac := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(strconv.FormatInt(ac.AnswerID, 10)))
		b.WriteByte(':')
		data, err := json.Marshal(ac.Comments)
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an object keyed by answer id, preserving key order.
func (m *AnswerComments) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("answer comments: expected object, got %v", tok)
	}

	out := AnswerComments{}
	seen := make(map[int64]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("answer comments: bad answer id %q: %w", key, err)
		}
		if seen[id] {
			return fmt.Errorf("answer comments: duplicate answer id %d", id)
		}
		seen[id] = true

		var comments []Comment
		if err := dec.Decode(&comments); err != nil {
			return fmt.Errorf("answer comments: answer %d: %w", id, err)
		}
		out = append(out, AnswerComment{AnswerID: id, Comments: comments})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
