// Package main points at the MAUSim command-line tool.
//
// The simulator itself is in ./cmd/mausim.
package main

import (
	"fmt"
	"os"
)

const usage = `mausim models the match-action stages of a packet pipe.

Each stage matches header words against its ternary tables, resolves
the next table and writes immediate data back into the header.

  mausim run     -c pipe.json -p packets.json [--record out]
  mausim lookup  -c pipe.json -s <stage> -t <table> -k <key>
  mausim config  [-c pipe.json] [-o out.json]

Build it with: go build ./cmd/mausim`

func main() {
	fmt.Println(usage)

	if len(os.Args) > 1 {
		os.Exit(2)
	}
}
