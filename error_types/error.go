package error_types

import (
	"errors"
	"fmt"
)

// Kind identifies which stage of a replay pass produced an error
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindDownload
	KindExtraction
	KindPluginLoad
	KindPluginCapability
	KindPluginNotification
	KindTranslation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindDownload:
		return "DownloadError"
	case KindExtraction:
		return "ExtractionError"
	case KindPluginLoad:
		return "PluginLoadError"
	case KindPluginCapability:
		return "PluginCapabilityError"
	case KindPluginNotification:
		return "PluginNotificationError"
	case KindTranslation:
		return "TranslationError"
	default:
		return "UnknownError"
	}
}

// RecordContext identifies the account record being processed when an error occurred
type RecordContext struct {
	// Position is the zero based index of the record in extraction order
	Position     uint64
	Slot         uint64
	Pubkey       string
	WriteVersion uint64
}

func (r *RecordContext) String() string {
	return fmt.Sprintf("record %d (slot %d, pubkey %s, write version %d)", r.Position, r.Slot, r.Pubkey, r.WriteVersion)
}

// Error is the single error type surfaced to the operator at the end of a failed pass
type Error struct {
	Kind Kind
	Msg  string
	// Record is set for errors raised while handling a specific account record
	Record *RecordContext
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Record != nil {
		msg = fmt.Sprintf("%s at %s", msg, e.Record)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so that errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in the chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// RecordOf returns the record context of the first *Error in the chain which has one
func RecordOf(err error) *RecordContext {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil
		}
		if e.Record != nil {
			return e.Record
		}
		err = e.Err
	}
	return nil
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NewConfigurationError(msg string, err error) *Error {
	return newError(KindConfiguration, msg, err)
}

func NewDownloadError(msg string, err error) *Error {
	return newError(KindDownload, msg, err)
}

func NewExtractionError(msg string, err error) *Error {
	return newError(KindExtraction, msg, err)
}

func NewPluginLoadError(msg string, err error) *Error {
	return newError(KindPluginLoad, msg, err)
}

func NewPluginCapabilityError(msg string) *Error {
	return newError(KindPluginCapability, msg, nil)
}

// NewPluginNotificationError wraps a failed plugin call. record is nil for calls not tied to an account
func NewPluginNotificationError(record *RecordContext, err error) *Error {
	msg := "plugin failed to process account update"
	if record == nil {
		msg = "plugin notification failed"
	}
	e := newError(KindPluginNotification, msg, err)
	e.Record = record
	return e
}

func NewTranslationError(record *RecordContext, msg string) *Error {
	e := newError(KindTranslation, msg, nil)
	e.Record = record
	return e
}
