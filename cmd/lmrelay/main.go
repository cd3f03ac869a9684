package main

import (
	"fmt"
	"os"
)

// version is overridden at link time: -ldflags "-X main.version=v1.2.3".
var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lmrelay:", err)
		os.Exit(1)
	}
}
