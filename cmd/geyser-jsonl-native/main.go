// geyser-jsonl-native builds the jsonl plugin as a native module:
//
//	go build -buildmode=plugin -o libgeyser_jsonl.so ./cmd/geyser-jsonl-native
package main

import (
	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/plugins/jsonl"
)

// GeyserPluginABIVersion is checked by the host before NewGeyserPlugin is called
var GeyserPluginABIVersion = geyser.ABIVersion

func NewGeyserPlugin() geyser.Plugin {
	return jsonl.New()
}

func main() {}
