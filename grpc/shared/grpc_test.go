package shared

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hashicorp/go-plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/geyser/geysertest"
)

func dispense(t *testing.T, impl geyser.Plugin) *GeyserPluginClientWrapper {
	t.Helper()
	w, _ := dispenseWithServer(t, impl)
	return w
}

func dispenseWithServer(t *testing.T, impl geyser.Plugin) (*GeyserPluginClientWrapper, *plugin.GRPCServer) {
	t.Helper()
	client, server := plugin.TestPluginGRPCConn(t, false, map[string]plugin.Plugin{
		PluginName: &GeyserGRPCPlugin{Impl: impl},
	})
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})

	raw, err := client.Dispense(PluginName)
	require.NoError(t, err)
	w, ok := raw.(*GeyserPluginClientWrapper)
	require.True(t, ok)
	return w, server
}

func TestGeyserPluginClientWrapper_Lifecycle(t *testing.T) {
	rec := geysertest.NewRecorder("recorder")
	c := dispense(t, rec)

	assert.Equal(t, "recorder", c.Name())
	require.NoError(t, c.OnLoad("/etc/geyser.json", false))
	assert.Equal(t, "/etc/geyser.json", rec.ConfigFile())
	assert.True(t, c.AccountDataNotificationsEnabled())
	assert.False(t, c.TransactionNotificationsEnabled())

	data := append(bytes.Repeat([]byte{0}, 100), 0xff)
	info := geyser.ReplicaAccountInfo{
		Pubkey:       bytes.Repeat([]byte{7}, 32),
		Lamports:     2_039_280,
		Owner:        bytes.Repeat([]byte{9}, 32),
		Executable:   true,
		RentEpoch:    ^uint64(0),
		Data:         data,
		WriteVersion: 12,
	}
	require.NoError(t, c.UpdateAccount(info, 99, true))
	empty := info
	empty.Data = []byte{}
	empty.Executable = false
	require.NoError(t, c.UpdateAccount(empty, 100, true))
	require.NoError(t, c.NotifyEndOfStartup())
	c.OnUnload()

	got := rec.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, geysertest.Notification{Account: info, Slot: 99, IsStartup: true}, got[0])
	assert.Equal(t, geysertest.Notification{Account: empty, Slot: 100, IsStartup: true}, got[1])
	assert.Equal(t, 1, rec.EndOfStartupCalls())
	assert.Equal(t, 1, rec.Unloads())
}

func TestGeyserPluginClientWrapper_Errors(t *testing.T) {
	rec := geysertest.NewRecorder("failing")
	rec.LoadErr = errors.New("bad config")
	rec.FailAt = 1
	rec.FailErr = errors.New("database unavailable")
	rec.EndOfStartupErr = errors.New("flush failed")
	c := dispense(t, rec)

	assert.EqualError(t, c.OnLoad("x.json", false), "bad config")
	assert.EqualError(t, c.UpdateAccount(geyser.ReplicaAccountInfo{Data: []byte{1}}, 1, true), "database unavailable")
	assert.NoError(t, c.UpdateAccount(geyser.ReplicaAccountInfo{Data: []byte{1}}, 1, true))
	assert.EqualError(t, c.NotifyEndOfStartup(), "flush failed")
}

func TestGeyserPluginClientWrapper_MaxAccountDataLen(t *testing.T) {
	c := dispense(t, geysertest.NewRecorder("limits"))
	assert.Equal(t, DefaultMaxMessageSize-messageOverhead, c.MaxAccountDataLen())

	// a payload at the limit still fits the server's receive size
	data := make([]byte, c.MaxAccountDataLen())
	assert.NoError(t, c.UpdateAccount(geyser.ReplicaAccountInfo{
		Pubkey: bytes.Repeat([]byte{1}, 32),
		Owner:  bytes.Repeat([]byte{2}, 32),
		Data:   data,
	}, ^uint64(0), true))
}

func TestGeyserPluginClientWrapper_QueryAccountDataNotifications(t *testing.T) {
	c, server := dispenseWithServer(t, geysertest.NewRecorder("queried"))

	enabled, err := c.QueryAccountDataNotifications()
	require.NoError(t, err)
	assert.True(t, enabled)

	server.Stop()
	_, err = c.QueryAccountDataNotifications()
	assert.Error(t, err)
	assert.False(t, c.AccountDataNotificationsEnabled())
}
