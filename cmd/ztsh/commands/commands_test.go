package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zerotable/zerotable/cmd/ztsh/client"
)

// stubShell carries state only; tests here never reach the network.
type stubShell struct {
	collection string
	pretty     bool
}

func (s *stubShell) GetClient() *client.Client { return nil }
func (s *stubShell) GetCollection() string     { return s.collection }
func (s *stubShell) SetCollection(name string) { s.collection = name }
func (s *stubShell) GetPretty() bool           { return s.pretty }
func (s *stubShell) SetPretty(on bool)         { s.pretty = on }

func printResult(r Result) string {
	var buf bytes.Buffer
	r.Print(&buf)
	return buf.String()
}

func TestUse(t *testing.T) {
	sh := &stubShell{}
	if r := Use(sh, []string{"users"}); r.IsExit() {
		t.Fatal("use must not exit")
	}
	if sh.collection != "users" {
		t.Errorf("collection: got %q", sh.collection)
	}
	if _, ok := Use(sh, nil).(ErrorResult); !ok {
		t.Error("missing argument should error")
	}
}

func TestPWD(t *testing.T) {
	sh := &stubShell{}
	out := printResult(PWD(sh))
	if !strings.Contains(out, "No collection selected") {
		t.Errorf("empty state: %q", out)
	}
	sh.collection = "users"
	out = printResult(PWD(sh))
	if !strings.Contains(out, "collection=users") {
		t.Errorf("selected state: %q", out)
	}
}

func TestPretty(t *testing.T) {
	sh := &stubShell{}
	Pretty(sh, []string{"on"})
	if !sh.pretty {
		t.Error("pretty on")
	}
	Pretty(sh, []string{"off"})
	if sh.pretty {
		t.Error("pretty off")
	}
	if _, ok := Pretty(sh, []string{"maybe"}).(ErrorResult); !ok {
		t.Error("bad argument should error")
	}
}

func TestCommandsRequireCollection(t *testing.T) {
	sh := &stubShell{}
	for name, r := range map[string]Result{
		"create": Create(sh, []string{"-", "{}"}),
		"get":    Get(sh, []string{"1"}),
		"update": Update(sh, []string{"1", "{}"}),
		"delete": Delete(sh, []string{"1"}),
		"query":  Query(sh, []string{"where", "a", "=", "1"}),
		"schema": Schema(sh, []string{"get"}),
	} {
		if _, ok := r.(ErrorResult); !ok {
			t.Errorf("%s without collection should error, got %T", name, r)
		}
	}
}

func TestCreateRejectsBadPayload(t *testing.T) {
	sh := &stubShell{collection: "users"}
	r := Create(sh, []string{"-", "not", "json"})
	errResult, ok := r.(ErrorResult)
	if !ok {
		t.Fatalf("got %T, want ErrorResult", r)
	}
	if !strings.Contains(errResult.Err, "JSON object") {
		t.Errorf("message: %q", errResult.Err)
	}
}

func TestArgValidation(t *testing.T) {
	sh := &stubShell{collection: "users"}
	cases := map[string]Result{
		"create no payload": Create(sh, []string{"1"}),
		"get no id":         Get(sh, nil),
		"get extra":         Get(sh, []string{"1", "2"}),
		"update no payload": Update(sh, []string{"1"}),
		"delete no id":      Delete(sh, nil),
		"query empty":       Query(sh, nil),
		"schema bare":       Schema(sh, nil),
		"schema bad verb":   Schema(sh, []string{"upsert"}),
	}
	for name, r := range cases {
		if _, ok := r.(ErrorResult); !ok {
			t.Errorf("%s: got %T, want ErrorResult", name, r)
		}
	}
}

func TestHelpMentionsEveryCommand(t *testing.T) {
	out := printResult(Help())
	for _, cmd := range []string{".help", ".exit", ".use", ".pretty", ".create", ".get", ".update", ".delete", ".query", ".schema"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help missing %s", cmd)
		}
	}
}

func TestExit(t *testing.T) {
	if !Exit().IsExit() {
		t.Error("exit result should exit")
	}
}
