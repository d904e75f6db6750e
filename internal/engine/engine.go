// Package engine is the transactional document store: collection/document
// CRUD over an LSM-tree key-value substrate, with optimistic-conflict
// retry handled internally.
package engine

import (
	stderrors "errors"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/zerotable/zerotable/internal/errors"
	"github.com/zerotable/zerotable/internal/keys"
	"github.com/zerotable/zerotable/internal/logger"
	"github.com/zerotable/zerotable/internal/metrics"
	"github.com/zerotable/zerotable/internal/zql"
)

type Engine struct {
	db      *badger.DB
	log     *logger.Logger
	metrics *metrics.Metrics
	retrier *errors.Retrier

	mu     sync.RWMutex
	closed bool
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	// InMemory runs the store without touching disk, for tests.
	InMemory bool
	Metrics  *metrics.Metrics
}

// Open opens or creates the database at dir.
func Open(dir string, log *logger.Logger, opts Options) (*Engine, error) {
	if log == nil {
		log = logger.Default()
	}

	badgerOpts := badger.DefaultOptions(dir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	log.Info("engine open, dir=%s", dir)
	return &Engine{
		db:      db,
		log:     log,
		metrics: opts.Metrics,
		retrier: errors.NewRetrier(),
	}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.log.Info("engine closing")
	return e.db.Close()
}

func (e *Engine) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errors.ErrEngineClosed
	}
	return nil
}

// update runs fn in a read-write transaction with conflict retry. A
// conflict that survives the retry budget surfaces as ErrTxConflict.
func (e *Engine) update(fn func(txn *badger.Txn) error) error {
	calls := 0
	err := e.retrier.Do(func() error {
		calls++
		txn := e.db.NewTransaction(true)
		defer txn.Discard()
		if err := fn(txn); err != nil {
			return err
		}
		return txn.Commit()
	})
	if calls > 1 && e.metrics != nil {
		e.metrics.TxRetries.Add(float64(calls - 1))
	}
	if stderrors.Is(err, badger.ErrConflict) {
		return errors.ErrTxConflict
	}
	return err
}

// Create stores a new document. It fails with ErrDocExists when the id is
// already taken.
func (e *Engine) Create(collection, docID string, fields map[string]any, now time.Time) (*Document, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	key, err := keys.Encode(collection, docID)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Name:       collection + "/" + docID,
		CreateTime: now,
		UpdateTime: now,
		Fields:     fields,
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return nil, err
	}

	err = e.update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(key)
		if getErr == nil {
			return errors.ErrDocExists
		}
		if !stderrors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns a document by collection and id.
func (e *Engine) Get(collection, docID string) (*Document, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	key, err := keys.Encode(collection, docID)
	if err != nil {
		return nil, err
	}

	var doc *Document
	err = e.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if stderrors.Is(getErr, badger.ErrKeyNotFound) {
			return errors.ErrDocNotFound
		}
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			var decErr error
			doc, decErr = decodeDocument(val)
			return decErr
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update replaces a document's fields. When where is non-nil it is
// evaluated against the current document inside the transaction and a
// non-match fails with ErrPreconditionFailed, making the mutation
// conditional.
func (e *Engine) Update(collection, docID string, fields map[string]any, where zql.Expr, now time.Time) (*Document, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	key, err := keys.Encode(collection, docID)
	if err != nil {
		return nil, err
	}

	var updated *Document
	err = e.update(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if stderrors.Is(getErr, badger.ErrKeyNotFound) {
			return errors.ErrDocNotFound
		}
		if getErr != nil {
			return getErr
		}

		var current *Document
		if valErr := item.Value(func(val []byte) error {
			var decErr error
			current, decErr = decodeDocument(val)
			return decErr
		}); valErr != nil {
			return valErr
		}

		if where != nil {
			match, evalErr := zql.Matches(where, &zql.Context{Doc: current.Fields})
			if evalErr != nil {
				return evalErr
			}
			if !match {
				return errors.ErrPreconditionFailed
			}
		}

		updated = &Document{
			Name:       current.Name,
			CreateTime: current.CreateTime,
			UpdateTime: now,
			Fields:     fields,
		}
		data, encErr := encodeDocument(updated)
		if encErr != nil {
			return encErr
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a document, optionally guarded by a where filter like
// Update.
func (e *Engine) Delete(collection, docID string, where zql.Expr) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	key, err := keys.Encode(collection, docID)
	if err != nil {
		return err
	}

	return e.update(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if stderrors.Is(getErr, badger.ErrKeyNotFound) {
			return errors.ErrDocNotFound
		}
		if getErr != nil {
			return getErr
		}

		if where != nil {
			var current *Document
			if valErr := item.Value(func(val []byte) error {
				var decErr error
				current, decErr = decodeDocument(val)
				return decErr
			}); valErr != nil {
				return valErr
			}
			match, evalErr := zql.Matches(where, &zql.Context{Doc: current.Fields})
			if evalErr != nil {
				return evalErr
			}
			if !match {
				return errors.ErrPreconditionFailed
			}
		}

		return txn.Delete(key)
	})
}
