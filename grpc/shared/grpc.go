package shared

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/grpc/proto"
)

// GeyserPluginClientWrapper is an implementation of geyser.Plugin that talks over GRPC.
type GeyserPluginClientWrapper struct{ client proto.GeyserPluginClient }

func (c *GeyserPluginClientWrapper) Name() string {
	resp, err := c.client.Name(context.Background(), &proto.Empty{})
	if err != nil {
		slog.Warn("failed to retrieve plugin name", "error", err)
		return ""
	}
	return resp.Name
}

func (c *GeyserPluginClientWrapper) OnLoad(configFile string, isReload bool) error {
	_, err := c.client.OnLoad(context.Background(), &proto.OnLoadRequest{ConfigFile: configFile, IsReload: isReload})
	return callError(err)
}

func (c *GeyserPluginClientWrapper) OnUnload() {
	if _, err := c.client.OnUnload(context.Background(), &proto.Empty{}); err != nil {
		slog.Warn("plugin OnUnload failed", "error", err)
	}
}

func (c *GeyserPluginClientWrapper) UpdateAccount(account geyser.ReplicaAccountInfo, slot uint64, isStartup bool) error {
	_, err := c.client.UpdateAccount(context.Background(), &proto.UpdateAccountRequest{
		Pubkey:       account.Pubkey,
		Lamports:     account.Lamports,
		Owner:        account.Owner,
		Executable:   account.Executable,
		RentEpoch:    account.RentEpoch,
		Data:         account.Data,
		WriteVersion: account.WriteVersion,
		Slot:         slot,
		IsStartup:    isStartup,
	})
	return callError(err)
}

func (c *GeyserPluginClientWrapper) NotifyEndOfStartup() error {
	_, err := c.client.NotifyEndOfStartup(context.Background(), &proto.Empty{})
	return callError(err)
}

func (c *GeyserPluginClientWrapper) AccountDataNotificationsEnabled() bool {
	enabled, err := c.QueryAccountDataNotifications()
	return err == nil && enabled
}

// QueryAccountDataNotifications implements geyser.CapabilityQuerier
func (c *GeyserPluginClientWrapper) QueryAccountDataNotifications() (bool, error) {
	caps, err := c.capabilities()
	if err != nil {
		return false, err
	}
	return caps.AccountDataNotifications, nil
}

func (c *GeyserPluginClientWrapper) TransactionNotificationsEnabled() bool {
	caps, err := c.capabilities()
	return err == nil && caps.TransactionNotifications
}

// MaxAccountDataLen implements geyser.PayloadLimiter
func (c *GeyserPluginClientWrapper) MaxAccountDataLen() int {
	caps, err := c.capabilities()
	if err != nil || caps.MaxAccountDataLen == 0 {
		return maxAccountDataLen(DefaultMaxMessageSize)
	}
	return int(caps.MaxAccountDataLen)
}

func (c *GeyserPluginClientWrapper) capabilities() (*proto.CapabilitiesResponse, error) {
	caps, err := c.client.Capabilities(context.Background(), &proto.Empty{})
	if err != nil {
		slog.Warn("failed to retrieve plugin capabilities", "error", err)
		return nil, err
	}
	return caps, nil
}

// callError unwraps errors returned by the plugin implementation, leaving transport errors intact
func callError(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.Unknown {
		return errors.New(s.Message())
	}
	return err
}

// GeyserPluginServerWrapper is the gRPC server that GeyserPluginClientWrapper talks to.
type GeyserPluginServerWrapper struct {
	// This is the real implementation
	Impl              geyser.Plugin
	MaxAccountDataLen int
}

func (s *GeyserPluginServerWrapper) Name(context.Context, *proto.Empty) (*proto.NameResponse, error) {
	return &proto.NameResponse{Name: s.Impl.Name()}, nil
}

func (s *GeyserPluginServerWrapper) OnLoad(_ context.Context, req *proto.OnLoadRequest) (*proto.Empty, error) {
	return &proto.Empty{}, s.Impl.OnLoad(req.ConfigFile, req.IsReload)
}

func (s *GeyserPluginServerWrapper) OnUnload(context.Context, *proto.Empty) (*proto.Empty, error) {
	s.Impl.OnUnload()
	return &proto.Empty{}, nil
}

func (s *GeyserPluginServerWrapper) UpdateAccount(_ context.Context, req *proto.UpdateAccountRequest) (*proto.Empty, error) {
	account := geyser.ReplicaAccountInfo{
		Pubkey:       req.Pubkey,
		Lamports:     req.Lamports,
		Owner:        req.Owner,
		Executable:   req.Executable,
		RentEpoch:    req.RentEpoch,
		Data:         req.Data,
		WriteVersion: req.WriteVersion,
	}
	// empty fields are omitted on the wire
	if account.Data == nil {
		account.Data = []byte{}
	}
	return &proto.Empty{}, s.Impl.UpdateAccount(account, req.Slot, req.IsStartup)
}

func (s *GeyserPluginServerWrapper) NotifyEndOfStartup(context.Context, *proto.Empty) (*proto.Empty, error) {
	return &proto.Empty{}, s.Impl.NotifyEndOfStartup()
}

func (s *GeyserPluginServerWrapper) Capabilities(context.Context, *proto.Empty) (*proto.CapabilitiesResponse, error) {
	return &proto.CapabilitiesResponse{
		AccountDataNotifications: s.Impl.AccountDataNotificationsEnabled(),
		TransactionNotifications: s.Impl.TransactionNotificationsEnabled(),
		MaxAccountDataLen:        uint64(s.MaxAccountDataLen),
	}, nil
}
