// Package main provides the pairmeta CLI application.
// pairmeta manages the lifecycle of the gene-pair meta-analysis
// database: schema creation, per-study aggregation, ranked queries,
// and the HTTP query API.
package main

import (
	"os"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
