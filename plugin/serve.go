package plugin

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/turbot/go-kit/helpers"
	"google.golang.org/grpc"

	"github.com/plerkle-io/snapshot-geyser/constants"
	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/grpc/shared"
	"github.com/plerkle-io/snapshot-geyser/logging"
)

// ServeOpts are the configurations to serve a plugin.
type ServeOpts struct {
	Plugin geyser.Plugin
}

const (
	PluginStartupFailureMessage = "Plugin startup failed: "
)

// Serve creates and starts the GRPC server which serves the plugin,
//
//	It is called from the main function of the plugin executable.
func Serve(opts *ServeOpts) error {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%s%s", PluginStartupFailureMessage, helpers.ToError(r).Error())
			// write to stdout so the host can extract the error message
			fmt.Println(msg)
		}
	}()

	p := opts.Plugin
	if p == nil {
		return fmt.Errorf("no plugin provided")
	}

	// the host passes its log level through the environment
	if err := logging.Initialize(fmt.Sprintf("geyser-plugin-%s", p.Name()), ""); err != nil {
		return err
	}
	slog.Info("Serve", "plugin", p.Name())

	if _, found := os.LookupEnv(constants.EnvPprof); found {
		setupPprof()
	}

	pluginMap := map[string]plugin.Plugin{
		shared.PluginName: &shared.GeyserGRPCPlugin{Impl: p, MaxMessageSize: shared.MaxMessageSize},
	}
	plugin.Serve(&plugin.ServeConfig{
		Plugins:         pluginMap,
		GRPCServer:      newGRPCServer,
		HandshakeConfig: shared.Handshake,
		// disable server logging
		Logger: hclog.New(&hclog.LoggerOptions{Level: hclog.Off}),
	})
	return nil
}

func newGRPCServer(options []grpc.ServerOption) *grpc.Server {
	options = append(options,
		grpc.MaxRecvMsgSize(shared.MaxMessageSize),
		grpc.MaxSendMsgSize(shared.MaxMessageSize),
	)
	return grpc.NewServer(options...)
}

func setupPprof() {
	go func() {
		listener, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			slog.Error("Error starting pprof", "error", err)
			return
		}
		slog.Info("pprof listening", "url", fmt.Sprintf("http://localhost:%d/debug/pprof/", listener.Addr().(*net.TCPAddr).Port))
		err = http.Serve(listener, nil)
		if err != nil {
			slog.Error("Error starting pprof", "error", err)
		}
	}()
}
