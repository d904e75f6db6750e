package commands

import "github.com/zerotable/zerotable/cmd/ztsh/client"

// Shell is the state the commands need from the surrounding shell.
type Shell interface {
	GetClient() *client.Client
	GetCollection() string
	SetCollection(name string)
	GetPretty() bool
	SetPretty(on bool)
}
