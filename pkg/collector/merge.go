package collector

import (
	"bytes"
	"encoding/json"
	"regexp"

	"igosint/internal/fanout"
)

// Keyed is a string-keyed mapping that remembers insertion order and
// serializes as a JSON object in that order
type Keyed[V any] struct {
	keys   []string
	values map[string]V
}

// NewKeyed creates an empty mapping
func NewKeyed[V any]() *Keyed[V] {
	return &Keyed[V]{values: make(map[string]V)}
}

// Set stores v under key. A new key is appended; an existing one keeps its
// position.
func (k *Keyed[V]) Set(key string, v V) {
	if _, ok := k.values[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.values[key] = v
}

// Get returns the value stored under key
func (k *Keyed[V]) Get(key string) (V, bool) {
	v, ok := k.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (k *Keyed[V]) Keys() []string {
	return append([]string(nil), k.keys...)
}

// Len returns the number of keys
func (k *Keyed[V]) Len() int {
	return len(k.keys)
}

// Each calls fn for every entry in insertion order
func (k *Keyed[V]) Each(fn func(key string, v V)) {
	for _, key := range k.keys {
		fn(key, k.values[key])
	}
}

func (k *Keyed[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range k.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encode(key)
		if err != nil {
			return nil, err
		}
		vb, err := encode(k.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// mergeKeyed builds the keyed result of a fan-out in input order. Failed
// items and items whose value fails keep are left out.
func mergeKeyed[T any](report *fanout.Report[T], keep func(T) bool) *Keyed[T] {
	out := NewKeyed[T]()
	for _, res := range report.InOrder() {
		if res.Err != nil || !keep(res.Value) {
			continue
		}
		out.Set(res.Key, res.Value)
	}
	return out
}

func nonEmpty[T any](v []T) bool {
	return len(v) > 0
}

// Intersect returns the elements of a whose key also occurs in b, in the
// order of a
func Intersect[T any](a, b []T, key func(T) string) []T {
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[key(v)] = struct{}{}
	}
	out := make([]T, 0)
	for _, v := range a {
		if _, ok := inB[key(v)]; ok {
			out = append(out, v)
		}
	}
	return out
}

// word matches a Unicode word character
const word = `[\p{L}\p{N}\p{Mn}_]`

var hashtagPattern = regexp.MustCompile(`#` + word + `*[a-zA-Z]+` + word + `*`)

// ExtractHashtags returns the distinct hashtags of text in order of first
// appearance. A tag needs at least one letter, so "#2024" is not a tag
// while "#2024vibes" is.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
