// Package keys maps (collection, document) pairs to sortable byte strings.
//
// Key format: collection 0x00 id. The NUL separator keeps collections
// isolated under lexicographic order even when one collection name is a
// prefix of another, and the LSM store's key order then gives documents in
// id order within each collection.
package keys

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// separator byte between collection and document id.
const separator = 0x00

// MaxKeyLen bounds the encoded key size.
const MaxKeyLen = 512

var (
	ErrEmptyPart   = errors.New("collection and document id must be non-empty")
	ErrInvalidByte = errors.New("collection and document id must not contain NUL or '/'")
	ErrTooLong     = errors.New("encoded key exceeds maximum length")
)

func validatePart(s string) error {
	if s == "" {
		return ErrEmptyPart
	}
	for i := 0; i < len(s); i++ {
		if s[i] == separator || s[i] == '/' {
			return ErrInvalidByte
		}
	}
	return nil
}

// Encode builds the storage key for a document.
func Encode(collection, id string) ([]byte, error) {
	if err := validatePart(collection); err != nil {
		return nil, err
	}
	if err := validatePart(id); err != nil {
		return nil, err
	}
	if len(collection)+1+len(id) > MaxKeyLen {
		return nil, ErrTooLong
	}

	key := make([]byte, 0, len(collection)+1+len(id))
	key = append(key, collection...)
	key = append(key, separator)
	key = append(key, id...)
	return key, nil
}

// Decode splits a storage key back into (collection, id). It returns false
// for keys without a separator or with invalid UTF-8 in either part.
func Decode(key []byte) (collection, id string, ok bool) {
	pos := bytes.IndexByte(key, separator)
	if pos < 0 {
		return "", "", false
	}
	col, doc := key[:pos], key[pos+1:]
	if !utf8.Valid(col) || !utf8.Valid(doc) {
		return "", "", false
	}
	return string(col), string(doc), true
}

// CollectionPrefix builds the scan prefix covering every document of a
// collection.
func CollectionPrefix(collection string) ([]byte, error) {
	if err := validatePart(collection); err != nil {
		return nil, err
	}
	prefix := make([]byte, 0, len(collection)+1)
	prefix = append(prefix, collection...)
	prefix = append(prefix, separator)
	return prefix, nil
}
