package catalog

import (
	stderrors "errors"
	"testing"

	"github.com/zerotable/zerotable/internal/engine"
	"github.com/zerotable/zerotable/internal/errors"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	eng, err := engine.Open("", nil, engine.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return New(eng, nil)
}

func userSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "number", "minimum": float64(0)},
		},
	}
}

func TestSchemalessCollectionAcceptsAnything(t *testing.T) {
	cat := testCatalog(t)
	if err := cat.Validate("users", map[string]any{"anything": true}); err != nil {
		t.Errorf("schemaless validate: %v", err)
	}
}

func TestSetSchemaAndValidate(t *testing.T) {
	cat := testCatalog(t)
	if err := cat.SetSchema("users", userSchema()); err != nil {
		t.Fatalf("SetSchema: %v", err)
	}

	if err := cat.Validate("users", map[string]any{"name": "alice", "age": float64(30)}); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	err := cat.Validate("users", map[string]any{"age": float64(30)})
	if !stderrors.Is(err, errors.ErrSchemaViolation) {
		t.Errorf("missing required field: got %v, want ErrSchemaViolation", err)
	}

	err = cat.Validate("users", map[string]any{"name": "alice", "age": float64(-1)})
	if !stderrors.Is(err, errors.ErrSchemaViolation) {
		t.Errorf("minimum violation: got %v, want ErrSchemaViolation", err)
	}
}

func TestSetSchemaReplaces(t *testing.T) {
	cat := testCatalog(t)
	if err := cat.SetSchema("users", userSchema()); err != nil {
		t.Fatal(err)
	}
	// Loosen the schema; the previously invalid document now passes.
	if err := cat.SetSchema("users", map[string]any{"type": "object"}); err != nil {
		t.Fatalf("replace schema: %v", err)
	}
	if err := cat.Validate("users", map[string]any{"age": float64(30)}); err != nil {
		t.Errorf("after replacement: %v", err)
	}
}

func TestInvalidSchemaRejected(t *testing.T) {
	cat := testCatalog(t)
	err := cat.SetSchema("users", map[string]any{"type": float64(42)})
	if !stderrors.Is(err, errors.ErrSchemaViolation) {
		t.Errorf("got %v, want ErrSchemaViolation", err)
	}
}

func TestGetSchema(t *testing.T) {
	cat := testCatalog(t)
	if _, err := cat.GetSchema("users"); !stderrors.Is(err, errors.ErrDocNotFound) {
		t.Errorf("unset schema: got %v, want ErrDocNotFound", err)
	}

	if err := cat.SetSchema("users", userSchema()); err != nil {
		t.Fatal(err)
	}
	schema, err := cat.GetSchema("users")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("stored schema: %v", schema)
	}
}

func TestDeleteSchema(t *testing.T) {
	cat := testCatalog(t)
	if err := cat.SetSchema("users", userSchema()); err != nil {
		t.Fatal(err)
	}
	if err := cat.DeleteSchema("users"); err != nil {
		t.Fatalf("DeleteSchema: %v", err)
	}
	// Back to schemaless.
	if err := cat.Validate("users", map[string]any{"age": float64(30)}); err != nil {
		t.Errorf("after delete: %v", err)
	}
}

func TestReserved(t *testing.T) {
	if !Reserved("__catalog") || !Reserved("__anything") {
		t.Error("double-underscore names are reserved")
	}
	if Reserved("users") || Reserved("_single") {
		t.Error("ordinary names are not reserved")
	}
}
