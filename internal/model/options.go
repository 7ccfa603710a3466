package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Option is a single lettered choice.
type Option struct {
	Key  string
	Text string
}

// Options maps option letters to their text and remembers insertion order.
// It marshals to a JSON object whose keys appear in that order.
type Options struct {
	items []Option
}

// NewOptions builds Options from key/text pairs in order.
func NewOptions(pairs ...Option) Options {
	var o Options
	for _, p := range pairs {
		o.Set(p.Key, p.Text)
	}
	return o
}

// Set writes text under key. An existing key keeps its position and is overwritten.
func (o *Options) Set(key, text string) {
	for i := range o.items {
		if o.items[i].Key == key {
			o.items[i].Text = text
			return
		}
	}
	o.items = append(o.items, Option{Key: key, Text: text})
}

// Get returns the text stored under key.
func (o Options) Get(key string) (string, bool) {
	for _, it := range o.items {
		if it.Key == key {
			return it.Text, true
		}
	}
	return "", false
}

// Last returns the most recently inserted option.
func (o Options) Last() (Option, bool) {
	if len(o.items) == 0 {
		return Option{}, false
	}
	return o.items[len(o.items)-1], true
}

// AppendToLast space-joins text onto the last inserted option.
func (o *Options) AppendToLast(text string) bool {
	if len(o.items) == 0 {
		return false
	}
	last := &o.items[len(o.items)-1]
	last.Text += " " + text
	return true
}

// Len returns the number of options.
func (o Options) Len() int { return len(o.items) }

// Keys returns option letters in insertion order.
func (o Options) Keys() []string {
	keys := make([]string, len(o.items))
	for i, it := range o.items {
		keys[i] = it.Key
	}
	return keys
}

// Items returns a copy of the ordered options.
func (o Options) Items() []Option {
	out := make([]Option, len(o.items))
	copy(out, o.items)
	return out
}

// MarshalJSON writes an object with keys in insertion order.
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range o.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(it.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(it.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object and keeps the key order found in the document.
func (o *Options) UnmarshalJSON(data []byte) error {
	o.items = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("options: expected string key, got %v", tok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("options: value for %q: %w", key, err)
		}
		o.Set(key, text)
	}
	_, err = dec.Token()
	return err
}
