// Package geysertest provides a recording geyser.Plugin for tests of hosts and transports
package geysertest

import (
	"bytes"
	"errors"
	"sync"

	"github.com/plerkle-io/snapshot-geyser/geyser"
)

// ErrInjected is returned by a Recorder when configured to fail without a specific error
var ErrInjected = errors.New("injected failure")

// Notification is one recorded UpdateAccount call
type Notification struct {
	Account   geyser.ReplicaAccountInfo
	Slot      uint64
	IsStartup bool
}

// Recorder is a geyser.Plugin which records every call made to it
type Recorder struct {
	PluginName   string
	AccountData  bool
	Transactions bool

	// LoadErr is returned from OnLoad
	LoadErr error
	// FailAt makes the n-th UpdateAccount call (counting from 1) return FailErr, or ErrInjected if FailErr is nil
	FailAt  int
	FailErr error
	// EndOfStartupErr is returned from NotifyEndOfStartup
	EndOfStartupErr error

	mu            sync.Mutex
	configFile    string
	loads         int
	unloads       int
	updates       int
	notifications []Notification
	endOfStartup  int
}

// NewRecorder returns a Recorder that wants account notifications
func NewRecorder(name string) *Recorder {
	return &Recorder{PluginName: name, AccountData: true}
}

func (r *Recorder) Name() string {
	return r.PluginName
}

func (r *Recorder) OnLoad(configFile string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configFile = configFile
	r.loads++
	return r.LoadErr
}

func (r *Recorder) OnUnload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unloads++
}

func (r *Recorder) UpdateAccount(account geyser.ReplicaAccountInfo, slot uint64, isStartup bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.FailAt > 0 && r.updates == r.FailAt {
		if r.FailErr != nil {
			return r.FailErr
		}
		return ErrInjected
	}
	// the host only guarantees the account buffers for the duration of the call
	account.Pubkey = bytes.Clone(account.Pubkey)
	account.Owner = bytes.Clone(account.Owner)
	account.Data = append([]byte{}, account.Data...)
	r.notifications = append(r.notifications, Notification{Account: account, Slot: slot, IsStartup: isStartup})
	return nil
}

func (r *Recorder) NotifyEndOfStartup() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endOfStartup++
	return r.EndOfStartupErr
}

func (r *Recorder) AccountDataNotificationsEnabled() bool {
	return r.AccountData
}

func (r *Recorder) TransactionNotificationsEnabled() bool {
	return r.Transactions
}

// Notifications returns the successful UpdateAccount calls in order
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// UpdateCalls returns the number of UpdateAccount calls, including failed ones
func (r *Recorder) UpdateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func (r *Recorder) EndOfStartupCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endOfStartup
}

func (r *Recorder) ConfigFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configFile
}

func (r *Recorder) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *Recorder) Unloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unloads
}
