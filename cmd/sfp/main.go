// Package main is the entry point for the sfp CLI client.
package main

import (
	"github.com/donaldgifford/storefront-proxy/cmd/sfp/cmd"
)

func main() {
	cmd.Execute()
}
