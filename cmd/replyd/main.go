// Package main is the entry point for replyd.
//
// Usage:
//
//	replyd serve [--config file] [--addr host:port] [--pidfile path]
//	replyd run <user-summary|reply|embeddings> -f in.json
//	replyd status
//	replyd stop --pidfile path
//	replyd version
package main

import (
	"context"
	"fmt"
	"os"
)

const appName = "replyd"

// version is set at build time via -ldflags.
var version = "0.1.0"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
