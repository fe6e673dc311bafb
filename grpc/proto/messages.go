package proto

import (
	"bytes"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Empty is used by calls with no arguments or no result
type Empty struct{}

func (*Empty) AppendWire(b []byte) []byte { return b }

func (*Empty) UnmarshalWire(b []byte) error {
	return consumeFields(b, func(protowire.Number, protowire.Type, []byte) (int, error) {
		return -1, nil
	})
}

type NameResponse struct {
	Name string
}

func (m *NameResponse) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.Name)
}

func (m *NameResponse) UnmarshalWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, b, &m.Name)
		}
		return -1, nil
	})
}

type OnLoadRequest struct {
	ConfigFile string
	IsReload   bool
}

func (m *OnLoadRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.ConfigFile)
	return appendBool(b, 2, m.IsReload)
}

func (m *OnLoadRequest) UnmarshalWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.ConfigFile)
		case 2:
			return consumeBool(typ, b, &m.IsReload)
		}
		return -1, nil
	})
}

// UpdateAccountRequest carries one account notification
type UpdateAccountRequest struct {
	Pubkey       []byte
	Lamports     uint64
	Owner        []byte
	Executable   bool
	RentEpoch    uint64
	Data         []byte
	WriteVersion uint64
	Slot         uint64
	IsStartup    bool
}

func (m *UpdateAccountRequest) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.Pubkey)
	b = appendVarint(b, 2, m.Lamports)
	b = appendBytes(b, 3, m.Owner)
	b = appendBool(b, 4, m.Executable)
	b = appendVarint(b, 5, m.RentEpoch)
	b = appendBytes(b, 6, m.Data)
	b = appendVarint(b, 7, m.WriteVersion)
	b = appendVarint(b, 8, m.Slot)
	return appendBool(b, 9, m.IsStartup)
}

func (m *UpdateAccountRequest) UnmarshalWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.Pubkey)
		case 2:
			return consumeVarint(typ, b, &m.Lamports)
		case 3:
			return consumeBytes(typ, b, &m.Owner)
		case 4:
			return consumeBool(typ, b, &m.Executable)
		case 5:
			return consumeVarint(typ, b, &m.RentEpoch)
		case 6:
			return consumeBytes(typ, b, &m.Data)
		case 7:
			return consumeVarint(typ, b, &m.WriteVersion)
		case 8:
			return consumeVarint(typ, b, &m.Slot)
		case 9:
			return consumeBool(typ, b, &m.IsStartup)
		}
		return -1, nil
	})
}

type CapabilitiesResponse struct {
	AccountDataNotifications bool
	TransactionNotifications bool
	// MaxAccountDataLen is the largest account data the plugin side will accept, 0 if unknown
	MaxAccountDataLen uint64
}

func (m *CapabilitiesResponse) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, m.AccountDataNotifications)
	b = appendBool(b, 2, m.TransactionNotifications)
	return appendVarint(b, 3, m.MaxAccountDataLen)
}

func (m *CapabilitiesResponse) UnmarshalWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.AccountDataNotifications)
		case 2:
			return consumeBool(typ, b, &m.TransactionNotifications)
		case 3:
			return consumeVarint(typ, b, &m.MaxAccountDataLen)
		}
		return -1, nil
	})
}

// default values are omitted, as protoc generated code does for proto3 scalars

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// consumeFields walks the fields of b. fn returns the number of bytes it consumed,
// or -1 to skip a field it does not know
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == -1 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func checkType(got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("unexpected wire type %d, expected %d", got, want)
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, v *string) (int, error) {
	if err := checkType(typ, protowire.BytesType); err != nil {
		return 0, err
	}
	s, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = s
	return n, nil
}

// consumeBytes copies the value, the transport may reuse the receive buffer
func consumeBytes(typ protowire.Type, b []byte, v *[]byte) (int, error) {
	if err := checkType(typ, protowire.BytesType); err != nil {
		return 0, err
	}
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = bytes.Clone(raw)
	if *v == nil {
		*v = []byte{}
	}
	return n, nil
}

func consumeVarint(typ protowire.Type, b []byte, v *uint64) (int, error) {
	if err := checkType(typ, protowire.VarintType); err != nil {
		return 0, err
	}
	x, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = x
	return n, nil
}

func consumeBool(typ protowire.Type, b []byte, v *bool) (int, error) {
	var x uint64
	n, err := consumeVarint(typ, b, &x)
	if err != nil {
		return 0, err
	}
	*v = protowire.DecodeBool(x)
	return n, nil
}
