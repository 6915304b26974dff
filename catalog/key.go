package catalog

import (
	"fmt"
	"hash/crc32"
	"path/filepath"
	"strconv"
	"strings"
)

// Key identifies a source directory by the hash of its logical path.
type Key uint64

// Hash40 hashes a logical path the way the host addresses resources: the low
// 32 bits are the CRC-32 (IEEE) of the path bytes and bits 32-39 hold the
// path length.
func Hash40(logicalPath string) Key {
	length := uint64(len(logicalPath)) & 0xff
	return Key(length<<32 | uint64(crc32.ChecksumIEEE([]byte(logicalPath))))
}

// LogicalPath converts a path relative to the discovery root into the logical
// path the host uses. ';' is reserved on the host side for ':' and is
// substituted accordingly.
func LogicalPath(rel string) string {
	return strings.ReplaceAll(filepath.ToSlash(rel), ";", ":")
}

// KeyForPath derives the key of a path relative to the discovery root.
func KeyForPath(rel string) Key {
	return Hash40(LogicalPath(rel))
}

// ParseKey parses a hexadecimal key, with or without a 0x prefix.
func ParseKey(s string) (Key, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog: parse key %q: %w", s, err)
	}
	return Key(v), nil
}

// String formats the key as 0x-prefixed hex.
func (k Key) String() string {
	return fmt.Sprintf("%#x", uint64(k))
}

// NormalizeLogicalPath cleans a user-supplied logical path.
//
// Leading and trailing slashes are stripped and consecutive slashes are
// collapsed: "/sound//bank/x.nus3audio/" becomes "sound/bank/x.nus3audio".
// An empty result becomes ".". Dot elements are preserved.
func NormalizeLogicalPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}
