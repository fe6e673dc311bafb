package loader

import (
	"context"
	"log/slog"

	"github.com/plerkle-io/snapshot-geyser/geyser"
	geysergrpc "github.com/plerkle-io/snapshot-geyser/grpc"
)

func loadGRPC(_ context.Context, cfg *geyser.PluginConfig, opts *LoadOptions) (geyser.Plugin, func(), error) {
	client, err := geysergrpc.StartPluginClient(cfg.LibPath, opts.logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if client.Exited() {
			slog.Warn("plugin process exited before it was released", "path", cfg.LibPath)
		}
		client.Kill()
	}
	return client, release, nil
}
