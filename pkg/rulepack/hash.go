package rulepack

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Hash computes the SHA-256 content hash of p over its canonical JSON
// serialization: object keys sorted, no insignificant whitespace, dates
// rendered as ISO-8601 (time.Time's default JSON encoding already does
// this, via RFC3339). Two RulePack values with identical content hash
// identically regardless of struct field order.
func Hash(p *RulePack) (string, error) {
	canonical, err := Canonicalize(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize renders p as canonical JSON: marshal to get RFC3339 dates
// and correct field encoding, decode into a generic tree, then re-encode
// with map keys sorted and no extraneous whitespace. encoding/json's
// map[string]any marshaling already sorts keys, so the round-trip through
// an untyped tree is what gives us the sorted-keys guarantee for nested
// objects that Go's struct field order would otherwise fix.
func Canonicalize(p *RulePack) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
