// Package validation computes the END-record signature of an OASIS file.
package validation

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/rawbytedev/oasis/internal/common"
)

// Scheme is the validation scheme stored in END.
type Scheme uint8

const (
	None Scheme = iota
	CRC32
	Checksum32
)

func (s Scheme) String() string {
	switch s {
	case None:
		return "none"
	case CRC32:
		return "crc32"
	case Checksum32:
		return "checksum32"
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

// HasSignature reports whether END carries a four-byte signature.
func (s Scheme) HasSignature() bool { return s != None }

func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "crc32":
		return CRC32, nil
	case "checksum32", "checksum":
		return Checksum32, nil
	}
	return None, fmt.Errorf("unknown validation scheme %q", name)
}

func (s Scheme) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scheme) UnmarshalText(b []byte) error {
	v, err := ParseScheme(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Digest accumulates both signatures over every byte written to it.
// The zero value is ready to use.
type Digest struct {
	crc uint32
	sum uint32
}

func NewDigest() *Digest { return new(Digest) }

func (d *Digest) Write(p []byte) (int, error) {
	d.crc = crc32.Update(d.crc, crc32.IEEETable, p)
	for _, b := range p {
		d.sum += uint32(b)
	}
	return len(p), nil
}

func (d *Digest) WriteByte(c byte) error {
	one := [1]byte{c}
	d.crc = crc32.Update(d.crc, crc32.IEEETable, one[:])
	d.sum += uint32(c)
	return nil
}

// Sum returns the signature for scheme over the bytes seen so far.
func (d *Digest) Sum(s Scheme) uint32 {
	switch s {
	case CRC32:
		return d.crc
	case Checksum32:
		return d.sum
	}
	return 0
}

// Compute is the one-shot form of Digest.
func Compute(s Scheme, data []byte) uint32 {
	switch s {
	case CRC32:
		return crc32.ChecksumIEEE(data)
	case Checksum32:
		var sum uint32
		for _, b := range data {
			sum += uint32(b)
		}
		return sum
	}
	return 0
}

// Error reports a stored signature that disagrees with the file contents.
type Error struct {
	Scheme   Scheme
	Stored   uint32
	Computed uint32
}

func (e *Error) Error() string {
	return fmt.Sprintf("oasis: %s signature mismatch: stored %08x, computed %08x", e.Scheme, e.Stored, e.Computed)
}

func (e *Error) Unwrap() error { return common.ErrValidationMismatch }

// Check compares a stored signature with the computed one.
func Check(s Scheme, stored, computed uint32) error {
	if !s.HasSignature() || stored == computed {
		return nil
	}
	return &Error{Scheme: s, Stored: stored, Computed: computed}
}
