package engine

import (
	"io"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/zerotable/zerotable/internal/errors"
	"github.com/zerotable/zerotable/internal/keys"
	"github.com/zerotable/zerotable/internal/zql"
)

// Scan returns a stream over every document in a collection, in key order.
// The stream holds a read transaction open until Close, so callers must
// always Close it (the query executor does).
func (e *Engine) Scan(collection string) (zql.DocStream, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	prefix, err := keys.CollectionPrefix(collection)
	if err != nil {
		return nil, err
	}

	txn := e.db.NewTransaction(false)
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.Prefix = prefix
	it := txn.NewIterator(iterOpts)
	it.Rewind()

	return &scanStream{txn: txn, it: it, prefix: prefix}, nil
}

type scanStream struct {
	txn    *badger.Txn
	it     *badger.Iterator
	prefix []byte
	closed bool
}

func (s *scanStream) Next() (zql.Candidate, error) {
	if s.closed || !s.it.ValidForPrefix(s.prefix) {
		return zql.Candidate{}, io.EOF
	}

	item := s.it.Item()
	_, docID, ok := keys.Decode(item.KeyCopy(nil))
	if !ok {
		return zql.Candidate{}, errors.ErrInvalidDocument
	}

	var doc *Document
	err := item.Value(func(val []byte) error {
		var decErr error
		doc, decErr = decodeDocument(val)
		return decErr
	})
	if err != nil {
		return zql.Candidate{}, err
	}

	s.it.Next()
	return zql.Candidate{ID: docID, Doc: doc.Fields}, nil
}

func (s *scanStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.it.Close()
	s.txn.Discard()
	return nil
}
