package fragmenter

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Fragment is one piece of a payload split by CreateFragments.
type Fragment struct {
	ID         uint32
	This       uint32
	Total      uint32
	Compressed bool
	Data       []byte
}

const (
	fID         protowire.Number = 1
	fThis       protowire.Number = 2
	fTotal      protowire.Number = 3
	fCompressed protowire.Number = 4
	fData       protowire.Number = 5
)

// Marshal encodes f in protobuf wire format.
func (f *Fragment) Marshal() []byte {
	b := make([]byte, 0, len(f.Data)+24)
	b = protowire.AppendTag(b, fID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.ID))
	b = protowire.AppendTag(b, fThis, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.This))
	b = protowire.AppendTag(b, fTotal, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Total))
	if f.Compressed {
		b = protowire.AppendTag(b, fCompressed, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	b = protowire.AppendTag(b, fData, protowire.BytesType)
	return protowire.AppendBytes(b, f.Data)
}

// UnmarshalFragment decodes a fragment produced by Marshal. Unknown
// fields are skipped.
func UnmarshalFragment(b []byte) (*Fragment, error) {
	f := &Fragment{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadFragment, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && num >= fID && num <= fCompressed:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadFragment, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fID:
				f.ID = uint32(v)
			case fThis:
				f.This = uint32(v)
			case fTotal:
				f.Total = uint32(v)
			case fCompressed:
				f.Compressed = v != 0
			}
		case typ == protowire.BytesType && num == fData:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadFragment, protowire.ParseError(n))
			}
			b = b[n:]
			f.Data = append([]byte(nil), v...)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadFragment, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if f.Total == 0 || f.This >= f.Total {
		return nil, fmt.Errorf("%w: fragment %d of %d", ErrBadFragment, f.This, f.Total)
	}
	return f, nil
}
