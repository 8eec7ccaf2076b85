package multitier

import (
	"encoding/json"
	"fmt"
)

/*
CompressedStore is byte-only, but MultiTierCache's public Set/Get carry
arbitrary values, matching every other cache in this module.
serialize/deserialize bridge the two: []byte and string values pass
through with zero copying overhead (the common case for a prompt-text
cache), anything else falls back to JSON, which covers the struct/map
values a partition template might also choose to cache.
*/
type valueKind byte

const (
	kindBytes valueKind = iota
	kindString
	kindJSON
)

func serialize(value any) ([]byte, valueKind, error) {
	switch v := value.(type) {
	case []byte:
		return v, kindBytes, nil
	case string:
		return []byte(v), kindString, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, 0, fmt.Errorf("multitier: marshal value for cold tier: %w", err)
		}
		return b, kindJSON, nil
	}
}

func deserialize(data []byte, kind valueKind) (any, error) {
	switch kind {
	case kindBytes:
		return data, nil
	case kindString:
		return string(data), nil
	case kindJSON:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("multitier: unmarshal value from cold tier: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("multitier: unknown value kind %d", kind)
	}
}
