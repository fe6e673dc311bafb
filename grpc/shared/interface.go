package shared

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"

	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/grpc/proto"
)

// PluginName is the name the geyser plugin is dispensed under
const PluginName = "geyser"

const (
	// MaxMessageSize is the receive limit a served plugin configures on its gRPC server
	MaxMessageSize = 64 * 1024 * 1024
	// DefaultMaxMessageSize is the gRPC default receive limit, assumed when a server does not say otherwise
	DefaultMaxMessageSize = 4 * 1024 * 1024
	// room for the non data fields of an UpdateAccountRequest
	messageOverhead = 1024
)

// Handshake is a common handshake that is shared by plugin and host.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  uint(geyser.ABIVersion),
	MagicCookieKey:   "GEYSER_PLUGIN",
	MagicCookieValue: "geyser plugin",
}

// PluginMap is the map of plugins the host can dispense
var PluginMap = map[string]plugin.Plugin{
	PluginName: &GeyserGRPCPlugin{},
}

// GeyserGRPCPlugin is the implementation of plugin.GRPCPlugin so we can serve/consume this.
type GeyserGRPCPlugin struct {
	// GRPCPlugin must still implement the Plugin interface
	plugin.Plugin
	// Impl is the served plugin, only set on the plugin side
	Impl geyser.Plugin
	// MaxMessageSize is the receive limit of the server Impl is registered with, 0 for the gRPC default
	MaxMessageSize int
}

func (p *GeyserGRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, s *grpc.Server) error {
	proto.RegisterGeyserPluginServer(s, &GeyserPluginServerWrapper{
		Impl:              p.Impl,
		MaxAccountDataLen: maxAccountDataLen(p.MaxMessageSize),
	})
	return nil
}

func (p *GeyserGRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return &GeyserPluginClientWrapper{client: proto.NewGeyserPluginClient(c)}, nil
}

func maxAccountDataLen(maxMessageSize int) int {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return maxMessageSize - messageOverhead
}
