package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/logging"
)

// buildJSONLPlugin builds a jsonl plugin main of this module, skipping the test when it cannot be built
func buildJSONLPlugin(t *testing.T, pkg string, out string, args ...string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds a plugin binary")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}
	path := filepath.Join(t.TempDir(), out)
	cmd := exec.Command(goBin, append(append([]string{"build"}, args...), "-o", path, pkg)...)
	// tests run in the package directory
	cmd.Dir = ".."
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot build %s: %s", pkg, output)
	}
	return path
}

func writeJSONLConfig(t *testing.T, libPath string, protocol geyser.Protocol) (configPath, outputPath string) {
	t.Helper()
	dir := t.TempDir()
	outputPath = filepath.Join(dir, "accounts.jsonl")
	raw, err := json.Marshal(map[string]any{
		"libpath":     libPath,
		"protocol":    protocol,
		"output_path": outputPath,
	})
	require.NoError(t, err)
	configPath = filepath.Join(dir, "plugin.json")
	require.NoError(t, os.WriteFile(configPath, raw, 0600))
	return configPath, outputPath
}

func replayOne(t *testing.T, h *Handle) {
	t.Helper()
	require.NoError(t, h.RequireAccountNotifications())
	require.NoError(t, h.UpdateAccount(geyser.ReplicaAccountInfo{
		Pubkey:       solana.SysVarClockPubkey[:],
		Owner:        solana.SystemProgramID[:],
		Lamports:     1_169_280,
		Data:         []byte{1, 2, 3},
		WriteVersion: 5,
	}, 250, true))
	require.NoError(t, h.NotifyEndOfStartup())
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var res []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		res = append(res, line)
	}
	require.NoError(t, scanner.Err())
	return res
}

func TestLoad_GRPCPluginProcess(t *testing.T) {
	require.NoError(t, logging.Initialize("loader-test", "off"))
	libPath := buildJSONLPlugin(t, "./cmd/geyser-jsonl", "geyser-jsonl")
	configPath, outputPath := writeJSONLConfig(t, libPath, geyser.ProtocolGRPC)

	h, err := Load(context.Background(), configPath)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", h.Name())
	_, limited := h.PayloadLimit()
	assert.True(t, limited)

	replayOne(t, h)
	h.Release()

	lines := readLines(t, outputPath)
	require.Len(t, lines, 1)
	assert.Equal(t, solana.SysVarClockPubkey.String(), lines[0]["pubkey"])
	assert.Equal(t, float64(250), lines[0]["slot"])
}

func TestLoad_GRPCPluginProcessFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as plugin executable")
	}
	require.NoError(t, logging.Initialize("loader-test", "off"))

	t.Run("executable is not a plugin", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), "not-a-plugin")
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho hello\nexit 0\n"), 0700))
		configPath, _ := writeJSONLConfig(t, script, geyser.ProtocolGRPC)

		_, err := Load(context.Background(), configPath)
		assert.Equal(t, error_types.KindPluginLoad, error_types.KindOf(err))
	})
	t.Run("missing executable", func(t *testing.T) {
		configPath, _ := writeJSONLConfig(t, filepath.Join(t.TempDir(), "missing"), geyser.ProtocolGRPC)

		_, err := Load(context.Background(), configPath)
		assert.Equal(t, error_types.KindPluginLoad, error_types.KindOf(err))
	})
}

func TestLoad_NativeModule(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("go plugins are only supported on linux and darwin")
	}
	libPath := buildJSONLPlugin(t, "./cmd/geyser-jsonl-native", "libgeyser_jsonl.so", "-buildmode=plugin")
	configPath, outputPath := writeJSONLConfig(t, libPath, geyser.ProtocolNative)

	h, err := Load(context.Background(), configPath)
	if err != nil && strings.Contains(err.Error(), "different version of package") {
		// the test binary was built with other flags, for example -race or -cover
		t.Skip(err.Error())
	}
	require.NoError(t, err)
	assert.Equal(t, "jsonl", h.Name())
	_, limited := h.PayloadLimit()
	assert.False(t, limited)

	replayOne(t, h)
	h.Release()

	lines := readLines(t, outputPath)
	require.Len(t, lines, 1)
	assert.Equal(t, solana.SystemProgramID.String(), lines[0]["owner"])
}
