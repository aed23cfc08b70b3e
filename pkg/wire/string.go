package wire

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
)

// MaxStringLen caps the declared length of any string read from a stream.
const MaxStringLen = 1 << 30

type StringKind uint8

const (
	AString StringKind = iota
	BString
	NString
)

func (k StringKind) String() string {
	switch k {
	case AString:
		return "a-string"
	case BString:
		return "b-string"
	case NString:
		return "n-string"
	}
	return fmt.Sprintf("string-kind(%d)", uint8(k))
}

// Check reports whether v is a legal string of kind k.
func (k StringKind) Check(v string) error {
	switch k {
	case AString:
		for i := 0; i < len(v); i++ {
			if v[i] < 0x20 || v[i] > 0x7e {
				return fmt.Errorf("%w: byte 0x%02x in a-string", common.ErrMalformedRecord, v[i])
			}
		}
	case NString:
		if v == "" {
			return fmt.Errorf("%w: empty n-string", common.ErrMalformedRecord)
		}
		for i := 0; i < len(v); i++ {
			if v[i] < 0x21 || v[i] > 0x7e {
				return fmt.Errorf("%w: byte 0x%02x in n-string", common.ErrMalformedRecord, v[i])
			}
		}
	}
	return nil
}

// ReadString reads a length-prefixed string and checks it against k.
func ReadString(s Source, k StringKind) (string, error) {
	n, err := ReadUint(s)
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		return "", fmt.Errorf("%w: %s length %d", common.ErrOverflow, k, n)
	}
	b, err := s.ReadN(int(n))
	if err != nil {
		return "", common.Truncated(err)
	}
	v := string(b)
	if err := k.Check(v); err != nil {
		return "", err
	}
	return v, nil
}

// ReadBytes reads a b-string as raw bytes.
func ReadBytes(s Source) ([]byte, error) {
	n, err := ReadUint(s)
	if err != nil {
		return nil, err
	}
	if n > MaxStringLen {
		return nil, fmt.Errorf("%w: b-string length %d", common.ErrOverflow, n)
	}
	b, err := s.ReadN(int(n))
	return b, common.Truncated(err)
}

// AppendString writes v after checking it is legal for k.
func AppendString(dst []byte, k StringKind, v string) ([]byte, error) {
	if err := k.Check(v); err != nil {
		return dst, err
	}
	dst = AppendUint(dst, uint64(len(v)))
	return append(dst, v...), nil
}

func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendUint(dst, uint64(len(b)))
	return append(dst, b...)
}

// NameRef is either an inline name or a reference number into a name table.
type NameRef struct {
	ByRef bool
	Ref   uint64
	Name  string
}

// Named builds an inline NameRef.
func Named(name string) NameRef { return NameRef{Name: name} }

// Ref builds a by-reference NameRef.
func Ref(ref uint64) NameRef { return NameRef{ByRef: true, Ref: ref} }

func (n NameRef) String() string {
	if n.ByRef {
		return fmt.Sprintf("#%d", n.Ref)
	}
	return n.Name
}
