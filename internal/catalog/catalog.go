// Package catalog manages per-collection JSON schemas. Schemas are stored
// as documents in a reserved collection and compiled lazily; a collection
// without a schema accepts any object.
package catalog

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/zerotable/zerotable/internal/engine"
	"github.com/zerotable/zerotable/internal/errors"
	"github.com/zerotable/zerotable/internal/logger"
)

// SchemaCollection is the reserved collection holding schema documents,
// keyed by the collection they govern. User writes to it are rejected by
// the server layer.
const SchemaCollection = "__catalog"

type Catalog struct {
	eng *engine.Engine
	log *logger.Logger

	mu       sync.RWMutex
	compiled map[string]*gojsonschema.Schema
}

func New(eng *engine.Engine, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Default()
	}
	return &Catalog{
		eng:      eng,
		log:      log,
		compiled: make(map[string]*gojsonschema.Schema),
	}
}

// Reserved reports whether a collection name is reserved for internal use.
func Reserved(collection string) bool {
	return strings.HasPrefix(collection, "__")
}

// SetSchema validates, compiles and stores the schema for a collection,
// replacing any previous one.
func (c *Catalog) SetSchema(collection string, schema map[string]any) error {
	compiled, err := compile(schema)
	if err != nil {
		return err
	}

	fields := map[string]any{"schema": schema}
	now := time.Now().UTC()
	_, err = c.eng.Update(SchemaCollection, collection, fields, nil, now)
	if stderrors.Is(err, errors.ErrDocNotFound) {
		_, err = c.eng.Create(SchemaCollection, collection, fields, now)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.compiled[collection] = compiled
	c.mu.Unlock()
	c.log.Info("schema set for collection %s", collection)
	return nil
}

// GetSchema returns the stored schema document for a collection, or
// ErrDocNotFound when none is set.
func (c *Catalog) GetSchema(collection string) (map[string]any, error) {
	doc, err := c.eng.Get(SchemaCollection, collection)
	if err != nil {
		return nil, err
	}
	schema, _ := doc.Fields["schema"].(map[string]any)
	return schema, nil
}

// DeleteSchema removes a collection's schema, making it schemaless again.
func (c *Catalog) DeleteSchema(collection string) error {
	if err := c.eng.Delete(SchemaCollection, collection, nil); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.compiled, collection)
	c.mu.Unlock()
	return nil
}

// Validate checks fields against the collection's schema. Collections
// without a schema accept everything.
func (c *Catalog) Validate(collection string, fields map[string]any) error {
	schema, err := c.schemaFor(collection)
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrSchemaViolation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", errors.ErrSchemaViolation, strings.Join(msgs, "; "))
	}
	return nil
}

// schemaFor returns the compiled schema, loading and compiling from
// storage on cache miss. A nil result means no schema is set.
func (c *Catalog) schemaFor(collection string) (*gojsonschema.Schema, error) {
	c.mu.RLock()
	compiledSchema, ok := c.compiled[collection]
	c.mu.RUnlock()
	if ok {
		return compiledSchema, nil
	}

	raw, err := c.GetSchema(collection)
	if stderrors.Is(err, errors.ErrDocNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	compiledSchema, err = compile(raw)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.compiled[collection] = compiledSchema
	c.mu.Unlock()
	return compiledSchema, nil
}

func compile(schema map[string]any) (*gojsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSchemaViolation, err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid schema: %v", errors.ErrSchemaViolation, err)
	}
	return compiled, nil
}
