// Package jsonl is a geyser plugin which writes each account it is sent as a line of JSON
package jsonl

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/plerkle-io/snapshot-geyser/filepaths"
	"github.com/plerkle-io/snapshot-geyser/geyser"
)

const PluginName = "jsonl"

// Account is one output line
type Account struct {
	Slot         uint64 `json:"slot"`
	Pubkey       string `json:"pubkey"`
	Owner        string `json:"owner"`
	Lamports     uint64 `json:"lamports"`
	Executable   bool   `json:"executable"`
	RentEpoch    uint64 `json:"rent_epoch"`
	WriteVersion uint64 `json:"write_version"`
	DataLen      int    `json:"data_len"`
	Data         string `json:"data,omitempty"`
	IsStartup    bool   `json:"is_startup"`
}

type Plugin struct {
	mu      sync.Mutex
	config  *Config
	file    *os.File
	w       *bufio.Writer
	enc     *json.Encoder
	written uint64
	skipped uint64
}

func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) OnLoad(configFile string, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	config, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if err := filepaths.EnsureParentDir(config.OutputPath); err != nil {
		return err
	}
	file, err := os.Create(config.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSONL file %s: %w", config.OutputPath, err)
	}
	p.config = config
	p.file = file
	p.w = bufio.NewWriterSize(file, 1<<20)
	p.enc = json.NewEncoder(p.w)
	slog.Info("writing accounts", "file", config.OutputPath, "owners", len(config.Owners))
	return nil
}

func (p *Plugin) OnUnload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return
	}
	if err := errors.Join(p.w.Flush(), p.file.Close()); err != nil {
		slog.Error("failed to close JSONL file", "error", err)
	}
	p.file = nil
	slog.Info("unloaded", "written", p.written, "skipped", p.skipped)
}

func (p *Plugin) UpdateAccount(account geyser.ReplicaAccountInfo, slot uint64, isStartup bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enc == nil {
		return errors.New("plugin is not loaded")
	}

	pubkey, err := publicKey("pubkey", account.Pubkey)
	if err != nil {
		return err
	}
	owner, err := publicKey("owner", account.Owner)
	if err != nil {
		return err
	}
	if !p.config.wants(owner) {
		p.skipped++
		return nil
	}

	line := Account{
		Slot:         slot,
		Pubkey:       pubkey.String(),
		Owner:        owner.String(),
		Lamports:     account.Lamports,
		Executable:   account.Executable,
		RentEpoch:    account.RentEpoch,
		WriteVersion: account.WriteVersion,
		DataLen:      len(account.Data),
		IsStartup:    isStartup,
	}
	if p.config.IncludeData {
		line.Data = base64.StdEncoding.EncodeToString(account.Data)
	}
	if err := p.enc.Encode(line); err != nil {
		return fmt.Errorf("failed to encode account %s: %w", line.Pubkey, err)
	}
	p.written++
	return nil
}

func (p *Plugin) NotifyEndOfStartup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == nil {
		return errors.New("plugin is not loaded")
	}
	slog.Info("end of startup", "written", p.written, "skipped", p.skipped)
	return p.w.Flush()
}

func (p *Plugin) AccountDataNotificationsEnabled() bool {
	return true
}

func (p *Plugin) TransactionNotificationsEnabled() bool {
	return false
}

func publicKey(field string, b []byte) (solana.PublicKey, error) {
	if len(b) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%s is %d bytes, expected %d", field, len(b), solana.PublicKeyLength)
	}
	return solana.PublicKeyFromBytes(b), nil
}
