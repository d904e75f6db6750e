// Package commands implements the ztsh dot-commands. Each command returns
// a printable Result; the shell decides where output goes.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zerotable/zerotable/cmd/ztsh/client"
)

type Result interface {
	Print(w io.Writer)
	IsExit() bool
}

type ErrorResult struct {
	Err string
}

func (e ErrorResult) Print(w io.Writer) {
	fmt.Fprintln(w, "ERROR")
	fmt.Fprintln(w, e.Err)
}

func (e ErrorResult) IsExit() bool { return false }

type ExitResult struct{}

func (e ExitResult) Print(w io.Writer) {}
func (e ExitResult) IsExit() bool      { return true }

type OKResult struct{}

func (o OKResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
}

func (o OKResult) IsExit() bool { return false }

type HelpResult struct{}

func (h HelpResult) Print(w io.Writer) {
	fmt.Fprintln(w, "ztsh commands:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Meta:")
	fmt.Fprintln(w, "  .help                Show this help message")
	fmt.Fprintln(w, "  .exit                Exit the shell")
	fmt.Fprintln(w, "  .use <collection>    Set current collection")
	fmt.Fprintln(w, "  .pwd                 Show current collection")
	fmt.Fprintln(w, "  .pretty on|off       Toggle JSON formatting")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Documents:")
	fmt.Fprintln(w, "  .create <id|-> <json>   Create document ('-' lets the server pick an id)")
	fmt.Fprintln(w, "  .get <id>                Read document")
	fmt.Fprintln(w, "  .update <id> <json>      Replace document fields")
	fmt.Fprintln(w, "  .delete <id>             Delete document")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Queries:")
	fmt.Fprintln(w, "  .query <zql>             Run a ZQL query against the current collection")
	fmt.Fprintln(w, "    e.g. .query where age >= 21 order name limit 10")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Schemas:")
	fmt.Fprintln(w, "  .schema set <json>       Set the collection's JSON schema")
	fmt.Fprintln(w, "  .schema get              Show the collection's schema")
	fmt.Fprintln(w, "  .schema del              Drop the collection's schema")
}

func (h HelpResult) IsExit() bool { return false }

type DocResult struct {
	Doc    map[string]any
	Pretty bool
}

func (d DocResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	if d.Doc == nil {
		return
	}
	fmt.Fprintln(w, marshal(d.Doc, d.Pretty))
}

func (d DocResult) IsExit() bool { return false }

type QueryResult struct {
	Resp   *client.QueryResponse
	Pretty bool
}

func (q QueryResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	fmt.Fprintf(w, "count=%d\n", q.Resp.Count)
	for _, row := range q.Resp.Results {
		body := row.Fields
		if row.Returned != nil {
			body = row.Returned
		}
		fmt.Fprintf(w, "%s: %s\n", row.ID, marshal(body, q.Pretty))
	}
}

func (q QueryResult) IsExit() bool { return false }

type PWDResult struct {
	Collection string
}

func (p PWDResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	if p.Collection == "" {
		fmt.Fprintln(w, "No collection selected; use '.use <collection>'")
	} else {
		fmt.Fprintf(w, "collection=%s\n", p.Collection)
	}
}

func (p PWDResult) IsExit() bool { return false }

func Help() Result { return HelpResult{} }
func Exit() Result { return ExitResult{} }

func Use(s Shell, args []string) Result {
	if len(args) != 1 {
		return ErrorResult{Err: "usage: .use <collection>"}
	}
	s.SetCollection(args[0])
	return OKResult{}
}

func PWD(s Shell) Result {
	return PWDResult{Collection: s.GetCollection()}
}

func Pretty(s Shell, args []string) Result {
	if len(args) == 0 {
		return ErrorResult{Err: "usage: .pretty on|off"}
	}
	switch strings.ToLower(args[0]) {
	case "on":
		s.SetPretty(true)
	case "off":
		s.SetPretty(false)
	default:
		return ErrorResult{Err: "usage: .pretty on|off"}
	}
	return OKResult{}
}

func Create(s Shell, args []string) Result {
	collection, err := needCollection(s)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if len(args) < 2 {
		return ErrorResult{Err: "usage: .create <id|-> <json>"}
	}

	docID := args[0]
	if docID == "-" {
		docID = ""
	}
	fields, err := parseFields(strings.Join(args[1:], " "))
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}

	doc, err := s.GetClient().Create(collection, docID, fields)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return DocResult{Doc: doc, Pretty: s.GetPretty()}
}

func Get(s Shell, args []string) Result {
	collection, err := needCollection(s)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if len(args) != 1 {
		return ErrorResult{Err: "usage: .get <id>"}
	}

	doc, err := s.GetClient().Get(collection, args[0])
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return DocResult{Doc: doc, Pretty: s.GetPretty()}
}

func Update(s Shell, args []string) Result {
	collection, err := needCollection(s)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if len(args) < 2 {
		return ErrorResult{Err: "usage: .update <id> <json>"}
	}

	fields, err := parseFields(strings.Join(args[1:], " "))
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}

	doc, err := s.GetClient().Update(collection, args[0], fields, "")
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return DocResult{Doc: doc, Pretty: s.GetPretty()}
}

func Delete(s Shell, args []string) Result {
	collection, err := needCollection(s)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if len(args) != 1 {
		return ErrorResult{Err: "usage: .delete <id>"}
	}

	if err := s.GetClient().Delete(collection, args[0], ""); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

func Query(s Shell, args []string) Result {
	collection, err := needCollection(s)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if len(args) == 0 {
		return ErrorResult{Err: "usage: .query <zql>"}
	}

	resp, err := s.GetClient().Query(collection, strings.Join(args, " "), nil)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return QueryResult{Resp: resp, Pretty: s.GetPretty()}
}

func Schema(s Shell, args []string) Result {
	collection, err := needCollection(s)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if len(args) == 0 {
		return ErrorResult{Err: "usage: .schema set <json> | .schema get | .schema del"}
	}

	switch args[0] {
	case "set":
		if len(args) < 2 {
			return ErrorResult{Err: "usage: .schema set <json>"}
		}
		schema, err := parseFields(strings.Join(args[1:], " "))
		if err != nil {
			return ErrorResult{Err: err.Error()}
		}
		if err := s.GetClient().SetSchema(collection, schema); err != nil {
			return ErrorResult{Err: err.Error()}
		}
		return OKResult{}
	case "get":
		schema, err := s.GetClient().GetSchema(collection)
		if err != nil {
			return ErrorResult{Err: err.Error()}
		}
		return DocResult{Doc: schema, Pretty: s.GetPretty()}
	case "del":
		if err := s.GetClient().DeleteSchema(collection); err != nil {
			return ErrorResult{Err: err.Error()}
		}
		return OKResult{}
	default:
		return ErrorResult{Err: "usage: .schema set <json> | .schema get | .schema del"}
	}
}

func needCollection(s Shell) (string, error) {
	collection := s.GetCollection()
	if collection == "" {
		return "", fmt.Errorf("no collection selected; use '.use <collection>'")
	}
	return collection, nil
}

func parseFields(text string) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %v", err)
	}
	return fields, nil
}

func marshal(v any, pretty bool) string {
	var data []byte
	if pretty {
		data, _ = json.MarshalIndent(v, "", "  ")
	} else {
		data, _ = json.Marshal(v)
	}
	return string(data)
}
