// Package reply decodes the loosely typed replies of server-side scripts into
// the shapes the collections expect. Anything else is ErrMalformed.
package reply

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrMalformed = errors.New("redistruct: malformed reply")

func malformed(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", ErrMalformed, want, got)
}

// Int64 accepts an integer reply (or its decimal string form).
func Int64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, malformed("integer", v)
		}
		return i, nil
	default:
		return 0, malformed("integer", v)
	}
}

// Bool treats 1 as true and 0 as false. Any other integer is malformed.
func Bool(v any) (bool, error) {
	n, err := Int64(v)
	if err != nil {
		return false, err
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: want 0 or 1, got %d", ErrMalformed, n)
	}
}

// Members decodes a flat array of bulk strings.
func Members(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, malformed("array", v)
	}
	out := make([]string, 0, len(arr))
	for _, m := range arr {
		s, ok := m.(string)
		if !ok {
			return nil, malformed("bulk string", m)
		}
		out = append(out, s)
	}
	return out, nil
}

// ScanChunk decodes {cursor, {member...}}. The cursor "0" ends a scan.
func ScanChunk(v any) (cursor string, members []string, err error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return "", nil, malformed("2-element array", v)
	}
	switch c := arr[0].(type) {
	case string:
		cursor = c
	case int64:
		cursor = strconv.FormatInt(c, 10)
	default:
		return "", nil, malformed("cursor", arr[0])
	}
	if _, err := strconv.ParseUint(cursor, 10, 64); err != nil {
		return "", nil, fmt.Errorf("%w: bad cursor %q", ErrMalformed, cursor)
	}
	members, err = Members(arr[1])
	if err != nil {
		return "", nil, err
	}
	return cursor, members, nil
}
