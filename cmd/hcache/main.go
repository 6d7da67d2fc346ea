// Package main provides the entry point for the hcache CLI.
package main

import (
	"github.com/hupe1980/hcache/internal/cli"
)

func main() {
	cli.Execute()
}
