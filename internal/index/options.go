package index

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/schema"
)

// Option keys recognized by ParseOptions. The schema option is required;
// everything else has a default.
const (
	OptionSchema          = "schema"
	OptionDirectory       = "directory"
	OptionInMemory        = "in_memory"
	OptionMaxBufferedDocs = "max_buffered_docs"
	OptionRefreshSeconds  = "refresh_seconds"
)

const (
	// DefaultMaxBufferedDocs is the buffered-write threshold that forces
	// an automatic commit.
	DefaultMaxBufferedDocs = 1000

	// DefaultRefreshSeconds is the background commit interval. Zero in
	// the options disables background commits.
	DefaultRefreshSeconds = 60
)

// Options is the parsed engine configuration for one table's index.
type Options struct {
	Path            string
	InMemory        bool
	MaxBufferedDocs int
	RefreshSeconds  int
}

// ParseOptions resolves the raw option map and parses the embedded mapper
// schema. Unknown keys are rejected so a typo fails at create time rather
// than silently falling back to a default.
func ParseOptions(options map[string]string) (Options, *schema.Schema, error) {
	for key := range options {
		switch key {
		case OptionSchema, OptionDirectory, OptionInMemory, OptionMaxBufferedDocs, OptionRefreshSeconds:
		default:
			return Options{}, nil, fmt.Errorf("%w: unknown option %q", domain.ErrInvalidOptions, key)
		}
	}

	raw := strings.TrimSpace(options[OptionSchema])
	if raw == "" {
		return Options{}, nil, fmt.Errorf("%w: missing required option %q", domain.ErrInvalidOptions, OptionSchema)
	}
	sch, err := schema.Parse([]byte(raw))
	if err != nil {
		return Options{}, nil, fmt.Errorf("option %q: %w", OptionSchema, err)
	}

	opts := Options{
		MaxBufferedDocs: DefaultMaxBufferedDocs,
		RefreshSeconds:  DefaultRefreshSeconds,
	}
	if v, ok := options[OptionInMemory]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Options{}, nil, fmt.Errorf("%w: option %q: not a boolean: %q", domain.ErrInvalidOptions, OptionInMemory, v)
		}
		opts.InMemory = b
	}
	opts.Path = options[OptionDirectory]
	if !opts.InMemory && opts.Path == "" {
		return Options{}, nil, fmt.Errorf("%w: missing required option %q", domain.ErrInvalidOptions, OptionDirectory)
	}
	if v, ok := options[OptionMaxBufferedDocs]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Options{}, nil, fmt.Errorf("%w: option %q must be a positive integer", domain.ErrInvalidOptions, OptionMaxBufferedDocs)
		}
		opts.MaxBufferedDocs = n
	}
	if v, ok := options[OptionRefreshSeconds]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Options{}, nil, fmt.Errorf("%w: option %q must be a non-negative integer", domain.ErrInvalidOptions, OptionRefreshSeconds)
		}
		opts.RefreshSeconds = n
	}
	return opts, sch, nil
}

// ValidateOptions statically checks an index definition before it is
// created or altered. It never touches disk or the engine. meta, when
// present, supplies the live column set of the backing table so the
// schema can be checked against it; a nil meta validates options alone.
func ValidateOptions(meta *table.Metadata, indexName string, options map[string]string) error {
	if strings.TrimSpace(indexName) == "" {
		return fmt.Errorf("%w: index name is required", domain.ErrInvalidOptions)
	}
	_, sch, err := ParseOptions(options)
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}
	if err := sch.ValidateColumns(meta.Columns); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidOptions, err)
	}
	return nil
}
