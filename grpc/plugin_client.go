package grpc

import (
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/plerkle-io/snapshot-geyser/constants"
	"github.com/plerkle-io/snapshot-geyser/grpc/shared"
	"github.com/plerkle-io/snapshot-geyser/logging"
)

// PluginClient is the client object used by the host to talk to an out-of-process plugin
type PluginClient struct {
	*shared.GeyserPluginClientWrapper
	Path   string
	Client *plugin.Client
}

// NewPluginClient connects to a started plugin process and dispenses the geyser plugin
func NewPluginClient(client *plugin.Client, path string) (*PluginClient, error) {
	// connect via GRPC
	rpcClient, err := client.Client()
	if err != nil {
		return nil, err
	}

	// request the plugin
	raw, err := rpcClient.Dispense(shared.PluginName)
	if err != nil {
		return nil, err
	}
	wrapper, ok := raw.(*shared.GeyserPluginClientWrapper)
	if !ok {
		return nil, fmt.Errorf("plugin %s dispensed unexpected type %T", path, raw)
	}
	return &PluginClient{
		GeyserPluginClientWrapper: wrapper,
		Path:                      path,
		Client:                    client,
	}, nil
}

// StartPluginClient launches the plugin executable at path. The process is killed if the connection fails
func StartPluginClient(path string, logger hclog.Logger) (*PluginClient, error) {
	if logger == nil {
		logger = logging.NewHCLogger("plugin")
	}
	cmd := exec.Command(path)
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", constants.EnvLogLevel, logging.Level()))

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  shared.Handshake,
		Plugins:          shared.PluginMap,
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Logger:           logger,
	})
	res, err := NewPluginClient(client, path)
	if err != nil {
		client.Kill()
		return nil, err
	}
	return res, nil
}

// Exited returned whether the underlying client has exited, i.e. the plugin has terminated
func (c *PluginClient) Exited() bool {
	return c.Client.Exited()
}

// Kill stops the plugin process
func (c *PluginClient) Kill() {
	c.Client.Kill()
}
