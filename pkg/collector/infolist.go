package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	errs "igosint/pkg/errors"
)

// infoListSource matches the exported files that carry user references
var infoListSource = regexp.MustCompile(
	`_(comments|followers|followers-subset(_[\w.]+)?|followings|followings-subset(_[\w.]+)?|likers|tagged|tagged-target|tagged-with)\.json$`)

// IsInfoListSource reports whether name looks like an export info-list can read
func IsInfoListSource(name string) bool {
	return infoListSource.MatchString(name)
}

// ParseInfoList extracts the user pks referenced by an exported file, in
// order of first appearance and without duplicates. Accepted layouts:
//
//	[{"pk": ...}, ...]                              followers, followings, subsets
//	{"id": [{"user": {"pk": ...}} | {"pk": ...}]}   comments, likers
//	{"id": {"usertags": [{"user": {"pk": ...}}]}}   tagged, tagged-with
//	{"id": {"user": {"pk": ...}}}                   tagged-target
//
// Anything else yields an error wrapping errors.ErrUnrecognizedShape.
func ParseInfoList(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnrecognizedShape, err)
	}

	p := &pkList{seen: make(map[string]struct{})}
	switch v := root.(type) {
	case []interface{}:
		for i, item := range v {
			if err := p.addUser(item); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
	case map[string]interface{}:
		for _, key := range objectKeys(data) {
			if err := p.addEntry(v[key]); err != nil {
				return nil, fmt.Errorf("entry %q: %w", key, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: top level is neither a list nor an object", errs.ErrUnrecognizedShape)
	}
	return p.pks, nil
}

type pkList struct {
	pks  []string
	seen map[string]struct{}
}

func (p *pkList) add(pk string) {
	if _, ok := p.seen[pk]; ok {
		return
	}
	p.seen[pk] = struct{}{}
	p.pks = append(p.pks, pk)
}

// addEntry handles one value of a keyed export
func (p *pkList) addEntry(v interface{}) error {
	switch entry := v.(type) {
	case []interface{}:
		for _, item := range entry {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%w: list item is not an object", errs.ErrUnrecognizedShape)
			}
			if user, ok := obj["user"]; ok {
				item = user
			}
			if err := p.addUser(item); err != nil {
				return err
			}
		}
		return nil
	case map[string]interface{}:
		if tags, ok := entry["usertags"]; ok {
			list, ok := tags.([]interface{})
			if !ok {
				return fmt.Errorf("%w: usertags is not a list", errs.ErrUnrecognizedShape)
			}
			for _, tag := range list {
				obj, ok := tag.(map[string]interface{})
				if !ok {
					return fmt.Errorf("%w: usertag is not an object", errs.ErrUnrecognizedShape)
				}
				if err := p.addUser(obj["user"]); err != nil {
					return err
				}
			}
			return nil
		}
		return p.addUser(entry["user"])
	default:
		return fmt.Errorf("%w: unexpected %T value", errs.ErrUnrecognizedShape, v)
	}
}

// addUser reads the pk of a user object
func (p *pkList) addUser(v interface{}) error {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: user is not an object", errs.ErrUnrecognizedShape)
	}
	switch pk := obj["pk"].(type) {
	case json.Number:
		p.add(pk.String())
	case string:
		if pk == "" {
			return fmt.Errorf("%w: empty pk", errs.ErrUnrecognizedShape)
		}
		p.add(pk)
	default:
		return fmt.Errorf("%w: missing pk", errs.ErrUnrecognizedShape)
	}
	return nil
}

// objectKeys returns the keys of the top-level JSON object in document order
func objectKeys(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

// sliceBounds resolves [start, end) against n the way slicing a sequence
// does: negative indices count from the end and both bounds are clamped
func sliceBounds(n, start, end int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += n
		}
		if i < 0 {
			return 0
		}
		if i > n {
			return n
		}
		return i
	}
	lo, hi := clamp(start), clamp(end)
	if lo > hi {
		lo = hi
	}
	return lo, hi
}
