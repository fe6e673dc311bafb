package error_types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("replay: %w", NewDownloadError("failed to open snapshot", cause))

	assert.Equal(t, KindDownload, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Kind: KindDownload})
	assert.NotErrorIs(t, err, &Error{Kind: KindExtraction})
	assert.Equal(t, KindUnknown, KindOf(cause))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestError_Error(t *testing.T) {
	record := &RecordContext{Position: 3, Slot: 100, Pubkey: "11111111111111111111111111111111", WriteVersion: 9}
	err := NewPluginNotificationError(record, errors.New("disk full"))
	assert.Equal(t,
		"plugin failed to process account update at record 3 (slot 100, pubkey 11111111111111111111111111111111, write version 9): disk full",
		err.Error())
	assert.Equal(t, "plugin notification failed: disk full", NewPluginNotificationError(nil, errors.New("disk full")).Error())
	assert.Equal(t, "plugin does not accept account data", NewPluginCapabilityError("plugin does not accept account data").Error())
}

func TestRecordOf(t *testing.T) {
	record := &RecordContext{Position: 1}
	inner := NewTranslationError(record, "data length mismatch")
	outer := NewExtractionError("wrapped", inner)

	assert.Same(t, record, RecordOf(outer))
	assert.Nil(t, RecordOf(NewDownloadError("status 500", nil)))
	assert.Nil(t, RecordOf(errors.New("plain")))
}

func TestKind_String(t *testing.T) {
	kinds := map[Kind]string{
		KindConfiguration:      "ConfigurationError",
		KindDownload:           "DownloadError",
		KindExtraction:         "ExtractionError",
		KindPluginLoad:         "PluginLoadError",
		KindPluginCapability:   "PluginCapabilityError",
		KindPluginNotification: "PluginNotificationError",
		KindTranslation:        "TranslationError",
		KindUnknown:            "UnknownError",
	}
	for k, want := range kinds {
		assert.Equal(t, want, k.String())
	}
}
