// Command tensorpath converts contraction paths between encodings,
// canonicalizes tensor networks and runs cotengra path optimizers, locally or
// through a remote optimizer server.
//
// Usage:
//
//	tensorpath convert --from slot-reuse --to assign '[[0,3],[0,1],[2,0]]'
//	tensorpath normalize network.json
//	tensorpath optimize --op greedy network.json
//	tensorpath serve --address :50051
//	tensorpath health
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
