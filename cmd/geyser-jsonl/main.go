// geyser-jsonl serves the jsonl plugin out of process. Point a plugin config at it with "protocol": "grpc"
package main

import (
	"github.com/plerkle-io/snapshot-geyser/plugin"
	"github.com/plerkle-io/snapshot-geyser/plugins/jsonl"
)

func main() {
	if err := plugin.Serve(&plugin.ServeOpts{Plugin: jsonl.New()}); err != nil {
		panic(err)
	}
}
