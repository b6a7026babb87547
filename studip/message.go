package studip

import (
	"fmt"
)

// Message is a JSON object returned by the Stud.IP REST API.
type Message map[string]any

// AsMessage converts a decoded JSON value into a Message. It returns an error
// if the value is not a JSON object.
func AsMessage(v any) (Message, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("wrong type for api response: have=%T want=map[string]any", v)
	}
	return Message(m), nil
}

// GetString retrieves message's string value with the given key. It returns
// the empty string if the message does not contain the given key. Numeric ids
// are rendered without a fractional part.
func (m Message) GetString(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// RequireString is like GetString, but returns an error if the key is absent
// or empty.
func (m Message) RequireString(key string) (string, error) {
	s := m.GetString(key)
	if s == "" {
		return "", fmt.Errorf("missing string field: key=%s", key)
	}
	return s, nil
}

// GetMessage retrieves message's nested object with the given key. It returns
// an error if the field is absent or not an object.
func (m Message) GetMessage(key string) (Message, error) {
	x := m[key]
	if x == nil {
		return nil, fmt.Errorf("missing object field: key=%s", key)
	}

	sub, ok := x.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("wrong type for key=%s: have=%T want=map[string]any", key, x)
	}

	return Message(sub), nil
}

// GetSliceOfMessages retrieves message's value with the given key and returns
// it as a slice of messages. For example, it would retrieve a listing's
// "documents" field. It returns nil if the message does not contain a matching
// key. It returns an error if the retrieved field is not a slice of messages.
func (m Message) GetSliceOfMessages(key string) ([]Message, error) {
	x := m[key]
	if x == nil {
		return nil, nil
	}

	slice, ok := x.([]any)
	if !ok {
		return nil, fmt.Errorf("wrong type for key=%s: have=%T want=[]any", key, x)
	}

	var ms []Message
	for i, a := range slice {
		sub, ok := a.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("wrong type for key=%s,idx=%d: have=%T want=map[string]any", key, i, a)
		}
		ms = append(ms, Message(sub))
	}

	return ms, nil
}
