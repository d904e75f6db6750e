// Package shell holds ztsh session state and dispatches dot-commands.
package shell

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zerotable/zerotable/cmd/ztsh/client"
	"github.com/zerotable/zerotable/cmd/ztsh/commands"
)

type Shell struct {
	client     *client.Client
	mu         sync.Mutex
	collection string
	pretty     bool
}

func NewShell(baseURL string) *Shell {
	return &Shell{client: client.New(baseURL)}
}

// Ping checks that the daemon is reachable.
func (s *Shell) Ping() error {
	return s.client.Health()
}

func (s *Shell) GetClient() *client.Client { return s.client }

func (s *Shell) GetCollection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection
}

func (s *Shell) SetCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection = name
}

func (s *Shell) GetPretty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pretty
}

func (s *Shell) SetPretty(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pretty = on
}

// Execute dispatches one input line. Lines are split on whitespace; JSON
// payloads may span multiple fields since commands rejoin their tail.
func (s *Shell) Execute(line string) commands.Result {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return commands.OKResult{}
	}
	name, args := parts[0], parts[1:]

	switch name {
	case ".help":
		return commands.Help()
	case ".exit", ".quit":
		return commands.Exit()
	case ".use":
		return commands.Use(s, args)
	case ".pwd":
		return commands.PWD(s)
	case ".pretty":
		return commands.Pretty(s, args)
	case ".create":
		return commands.Create(s, args)
	case ".get":
		return commands.Get(s, args)
	case ".update":
		return commands.Update(s, args)
	case ".delete":
		return commands.Delete(s, args)
	case ".query":
		return commands.Query(s, args)
	case ".schema":
		return commands.Schema(s, args)
	default:
		return commands.ErrorResult{Err: fmt.Sprintf("unknown command: %s", name)}
	}
}
