// Command iexgate serves IEX market data over HTTP with a persistent historical price cache.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
