package engine

import (
	stderrors "errors"
	"io"
	"testing"
	"time"

	"github.com/zerotable/zerotable/internal/errors"
	"github.com/zerotable/zerotable/internal/zql"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := Open("", nil, Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func now() time.Time {
	return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
}

func TestCreateAndGet(t *testing.T) {
	eng := testEngine(t)

	fields := map[string]any{"name": "alice", "age": float64(30)}
	created, err := eng.Create("users", "1", fields, now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "users/1" {
		t.Errorf("name: got %q, want users/1", created.Name)
	}
	if !created.CreateTime.Equal(now()) || !created.UpdateTime.Equal(now()) {
		t.Errorf("timestamps: %v / %v", created.CreateTime, created.UpdateTime)
	}

	got, err := eng.Get("users", "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields["name"] != "alice" || got.Fields["age"] != float64(30) {
		t.Errorf("fields: got %v", got.Fields)
	}
}

func TestCreateDuplicate(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.Create("users", "1", nil, now()); err != nil {
		t.Fatal(err)
	}
	_, err := eng.Create("users", "1", map[string]any{"x": float64(1)}, now())
	if !stderrors.Is(err, errors.ErrDocExists) {
		t.Errorf("got %v, want ErrDocExists", err)
	}
}

func TestGetMissing(t *testing.T) {
	eng := testEngine(t)
	_, err := eng.Get("users", "nope")
	if !stderrors.Is(err, errors.ErrDocNotFound) {
		t.Errorf("got %v, want ErrDocNotFound", err)
	}
}

func TestInvalidKeyRejected(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.Create("", "1", nil, now()); err == nil {
		t.Error("empty collection should fail")
	}
	if _, err := eng.Create("users", "a/b", nil, now()); err == nil {
		t.Error("slash in id should fail")
	}
}

func TestUpdatePreservesCreateTime(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.Create("users", "1", map[string]any{"v": float64(1)}, now()); err != nil {
		t.Fatal(err)
	}

	later := now().Add(time.Hour)
	updated, err := eng.Update("users", "1", map[string]any{"v": float64(2)}, nil, later)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreateTime.Equal(now()) {
		t.Errorf("create time changed: %v", updated.CreateTime)
	}
	if !updated.UpdateTime.Equal(later) {
		t.Errorf("update time: got %v, want %v", updated.UpdateTime, later)
	}
	if updated.Fields["v"] != float64(2) {
		t.Errorf("fields not replaced: %v", updated.Fields)
	}
}

func TestUpdateMissing(t *testing.T) {
	eng := testEngine(t)
	_, err := eng.Update("users", "ghost", nil, nil, now())
	if !stderrors.Is(err, errors.ErrDocNotFound) {
		t.Errorf("got %v, want ErrDocNotFound", err)
	}
}

func TestConditionalUpdate(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.Create("users", "1", map[string]any{"status": "draft"}, now()); err != nil {
		t.Fatal(err)
	}

	match, err := zql.ParseFilter(`status = "draft"`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Update("users", "1", map[string]any{"status": "live"}, match, now()); err != nil {
		t.Fatalf("matching condition should update: %v", err)
	}

	// The same filter no longer matches the updated document.
	_, err = eng.Update("users", "1", map[string]any{"status": "x"}, match, now())
	if !stderrors.Is(err, errors.ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}

	got, err := eng.Get("users", "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Fields["status"] != "live" {
		t.Errorf("failed precondition must not mutate: %v", got.Fields)
	}
}

func TestConditionalDelete(t *testing.T) {
	eng := testEngine(t)
	if _, err := eng.Create("users", "1", map[string]any{"locked": true}, now()); err != nil {
		t.Fatal(err)
	}

	unlocked, err := zql.ParseFilter(`locked = false`)
	if err != nil {
		t.Fatal(err)
	}
	err = eng.Delete("users", "1", unlocked)
	if !stderrors.Is(err, errors.ErrPreconditionFailed) {
		t.Fatalf("got %v, want ErrPreconditionFailed", err)
	}

	locked, err := zql.ParseFilter(`locked = true`)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Delete("users", "1", locked); err != nil {
		t.Fatalf("matching condition should delete: %v", err)
	}
	if _, err := eng.Get("users", "1"); !stderrors.Is(err, errors.ErrDocNotFound) {
		t.Errorf("document should be gone, got %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	eng := testEngine(t)
	if err := eng.Delete("users", "ghost", nil); !stderrors.Is(err, errors.ErrDocNotFound) {
		t.Errorf("got %v, want ErrDocNotFound", err)
	}
}

func TestScanYieldsKeyOrder(t *testing.T) {
	eng := testEngine(t)
	for _, id := range []string{"c", "a", "b"} {
		if _, err := eng.Create("docs", id, map[string]any{"id": id}, now()); err != nil {
			t.Fatal(err)
		}
	}
	// A neighboring collection must not leak into the scan.
	if _, err := eng.Create("docs2", "z", nil, now()); err != nil {
		t.Fatal(err)
	}

	stream, err := eng.Scan("docs")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer stream.Close()

	var ids []string
	for {
		cand, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		ids = append(ids, cand.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("scan order: got %v, want [a b c]", ids)
	}
}

func TestScanEmptyCollection(t *testing.T) {
	eng := testEngine(t)
	stream, err := eng.Scan("empty")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer stream.Close()
	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestScanThroughExecutor(t *testing.T) {
	eng := testEngine(t)
	for i, name := range []string{"alice", "bob", "carol"} {
		fields := map[string]any{"name": name, "rank": float64(i)}
		if _, err := eng.Create("people", name, fields, now()); err != nil {
			t.Fatal(err)
		}
	}

	stream, err := eng.Scan("people")
	if err != nil {
		t.Fatal(err)
	}
	results, err := zql.Execute(zql.MustParse(`where rank >= 1 order rank desc`), stream, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 2 || results[0].ID != "carol" || results[1].ID != "bob" {
		t.Errorf("got %+v", results)
	}
}

func TestClosedEngine(t *testing.T) {
	eng := testEngine(t)
	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Get("users", "1"); !stderrors.Is(err, errors.ErrEngineClosed) {
		t.Errorf("got %v, want ErrEngineClosed", err)
	}
	if _, err := eng.Scan("users"); !stderrors.Is(err, errors.ErrEngineClosed) {
		t.Errorf("got %v, want ErrEngineClosed", err)
	}
	// Close is idempotent.
	if err := eng.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestDocumentEnvelopeRoundTrip(t *testing.T) {
	doc := &Document{
		Name:       "users/1",
		CreateTime: now(),
		UpdateTime: now(),
		Fields:     map[string]any{"a": float64(1)},
	}
	data, err := encodeDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	back, err := decodeDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != doc.Name || back.Fields["a"] != float64(1) {
		t.Errorf("round trip: %+v", back)
	}

	// A nil fields map decodes to an empty one.
	data, _ = encodeDocument(&Document{Name: "x/y", CreateTime: now(), UpdateTime: now()})
	back, err = decodeDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Fields == nil {
		t.Error("decoded Fields should never be nil")
	}
}
