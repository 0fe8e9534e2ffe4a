package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	hashPrefixLen   = 3
	hashCoreLen     = 32
	hashLocationLen = 4
	HashLen         = hashPrefixLen + hashCoreLen + hashLocationLen
)

type HashKind string

const (
	HashKindDna    HashKind = "dna"
	HashKindAgent  HashKind = "agent"
	HashKindAction HashKind = "action"
	HashKindEntry  HashKind = "entry"
)

var hashPrefixes = map[HashKind][hashPrefixLen]byte{
	HashKindDna:    {0x84, 0x2d, 0x24},
	HashKindAgent:  {0x84, 0x20, 0x24},
	HashKindAction: {0x84, 0x29, 0x24},
	HashKindEntry:  {0x84, 0x21, 0x24},
}

// Hash is a 39 byte holo hash: type prefix, 32 byte digest, 4 byte location.
type Hash []byte

type (
	DnaHash     = Hash
	AgentPubKey = Hash
	ActionHash  = Hash
	EntryHash   = Hash
)

func NewHash(kind HashKind, content []byte) Hash {
	digest := sha256.Sum256(content)
	return newHashFromDigest(kind, digest)
}

func newHashFromDigest(kind HashKind, digest [hashCoreLen]byte) Hash {
	prefix := hashPrefixes[kind]

	h := make(Hash, 0, HashLen)
	h = append(h, prefix[:]...)
	h = append(h, digest[:]...)
	h = append(h, dhtLocation(digest)...)
	return h
}

func dhtLocation(digest [hashCoreLen]byte) []byte {
	loc := make([]byte, hashLocationLen)
	for i, b := range digest {
		loc[i%hashLocationLen] ^= b
	}
	return loc
}

// B64 renders the hash the way the conductor does: "u" + url-safe base64 without padding.
func (h Hash) B64() string {
	if len(h) == 0 {
		return ""
	}
	return "u" + base64.RawURLEncoding.EncodeToString(h)
}

func (h Hash) String() string {
	return h.B64()
}

func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

func (h Hash) Kind() (HashKind, bool) {
	if len(h) < hashPrefixLen {
		return "", false
	}
	for kind, prefix := range hashPrefixes {
		if bytes.Equal(h[:hashPrefixLen], prefix[:]) {
			return kind, true
		}
	}
	return "", false
}

func ParseHash(raw string) (Hash, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "u") {
		return nil, fmt.Errorf("%w: %q is missing the u prefix", ErrInvalidHash, raw)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(trimmed[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidHash, raw, err)
	}
	if len(decoded) != HashLen {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes, want %d", ErrInvalidHash, raw, len(decoded), HashLen)
	}

	h := Hash(decoded)
	if _, ok := h.Kind(); !ok {
		return nil, fmt.Errorf("%w: %q has an unknown type prefix", ErrInvalidHash, raw)
	}

	return h, nil
}

func ParseHashOfKind(raw string, kind HashKind) (Hash, error) {
	h, err := ParseHash(raw)
	if err != nil {
		return nil, err
	}
	if got, _ := h.Kind(); got != kind {
		return nil, fmt.Errorf("%w: %q is a %s hash, want %s", ErrInvalidHash, raw, got, kind)
	}
	return h, nil
}

func ContainsHash(hashes []Hash, target Hash) bool {
	for _, h := range hashes {
		if h.Equal(target) {
			return true
		}
	}
	return false
}

func (h Hash) MarshalJSON() ([]byte, error) {
	if len(h) == 0 {
		return []byte("null"), nil
	}
	return []byte(`"` + h.B64() + `"`), nil
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*h = nil
		return nil
	}
	parsed, err := ParseHash(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
