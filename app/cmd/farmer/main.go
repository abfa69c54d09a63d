package main

import (
	"context"
	"os"

	"farmer/app/pkg/assert"
	"farmer/app/pkg/shutdown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go shutdown.HandleSIGTERM(cancel)
	assert.LoadCtxCancel(cancel)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
