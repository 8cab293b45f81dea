// Package main is the entry point for the storefront proxy server.
package main

import (
	"os"

	"github.com/donaldgifford/storefront-proxy/cmd/storefront-proxy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
