package oasis

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Compression selects where the writer opens CBLOCKs.
type Compression uint8

const (
	CompressNone Compression = iota
	CompressPerCell
	CompressCustom
)

func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "none"
	case CompressPerCell:
		return "per-cell"
	case CompressCustom:
		return "custom"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

func (c Compression) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Compression) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*c = CompressNone
	case "per-cell":
		*c = CompressPerCell
	case "custom":
		*c = CompressCustom
	default:
		return fmt.Errorf("oasis: unknown compression %q", b)
	}
	return nil
}

// NumberEncoding selects how the writer encodes reals and point lists.
type NumberEncoding uint8

const (
	// ExactRoundTrip keeps the encoding each value was decoded with.
	ExactRoundTrip NumberEncoding = iota
	// Compact re-chooses the shortest encoding.
	Compact
)

func (n NumberEncoding) String() string {
	switch n {
	case ExactRoundTrip:
		return "exact-roundtrip"
	case Compact:
		return "compact"
	}
	return fmt.Sprintf("number-encoding(%d)", uint8(n))
}

func (n NumberEncoding) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *NumberEncoding) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "exact-roundtrip":
		*n = ExactRoundTrip
	case "compact":
		*n = Compact
	default:
		return fmt.Errorf("oasis: unknown number encoding %q", b)
	}
	return nil
}

// Options configures decoding and encoding.
type Options struct {
	Validation        validation.Scheme `yaml:"validation"`
	Compression       Compression       `yaml:"compression"`
	CompressionScheme cblock.Scheme     `yaml:"compression_scheme"`
	CompressionLevel  int               `yaml:"compression_level"`
	NumberEncoding    NumberEncoding    `yaml:"number_encoding"`
	MaxBlockSize      uint64            `yaml:"max_block_size"`
	StrictTables      bool              `yaml:"strict_tables"`
	// Extensions allows private CBLOCK schemes.
	Extensions bool `yaml:"extensions"`

	// BlockBoundary reports whether a new CBLOCK starts before cell i when
	// Compression is CompressCustom.
	BlockBoundary func(i int, c *Cell) bool `yaml:"-"`
	Logger        *slog.Logger              `yaml:"-"`
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		Validation:   validation.CRC32,
		MaxBlockSize: cblock.DefaultMaxBlockSize,
		Logger:       slog.New(slog.DiscardHandler),
	}
}

// NewOptions applies opts to DefaultOptions and fills in a zero
// MaxBlockSize and a nil Logger.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.MaxBlockSize == 0 {
		o.MaxBlockSize = cblock.DefaultMaxBlockSize
	}
	return o
}

// WithOptions replaces every setting with o.
func WithOptions(o Options) Option { return func(dst *Options) { *dst = o } }

func WithValidation(s validation.Scheme) Option {
	return func(o *Options) { o.Validation = s }
}

func WithCompression(c Compression) Option {
	return func(o *Options) { o.Compression = c }
}

// WithCompressionScheme sets the CBLOCK scheme and level. Level 0 is the
// scheme default.
func WithCompressionScheme(s cblock.Scheme, level int) Option {
	return func(o *Options) {
		o.CompressionScheme = s
		o.CompressionLevel = level
	}
}

// WithBlockBoundary compresses with a caller supplied span policy.
func WithBlockBoundary(fn func(i int, c *Cell) bool) Option {
	return func(o *Options) {
		o.Compression = CompressCustom
		o.BlockBoundary = fn
	}
}

func WithNumberEncoding(n NumberEncoding) Option {
	return func(o *Options) { o.NumberEncoding = n }
}

func WithMaxBlockSize(n uint64) Option {
	return func(o *Options) { o.MaxBlockSize = n }
}

func WithStrictTables(strict bool) Option {
	return func(o *Options) { o.StrictTables = strict }
}

func WithExtensions(on bool) Option {
	return func(o *Options) { o.Extensions = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// ParseOptions reads YAML options on top of the defaults.
func ParseOptions(data []byte) (Options, error) {
	o := DefaultOptions()
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("oasis: options: %w", err)
	}
	if err := o.check(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// LoadOptions reads a YAML options file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	return ParseOptions(data)
}

func (o *Options) check() error {
	if !o.CompressionScheme.Standard() && !o.Extensions {
		return fmt.Errorf("%w: scheme %s needs extensions enabled", ErrCompression, o.CompressionScheme)
	}
	if o.Compression == CompressCustom && o.BlockBoundary == nil && o.Logger != nil {
		o.Logger.Warn("custom compression without a block boundary; writing uncompressed")
	}
	return nil
}
