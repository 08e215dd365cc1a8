package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedFormat is returned when a snapshot's format cannot be
// determined from its file extension.
var ErrUnsupportedFormat = errors.New("unsupported graph format")

// Format names a snapshot encoding.
type Format string

// Supported snapshot encodings.
const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Snapshot is the on-disk shape of a build plan: the node list lives under
// the "graph" key, as in the planner's JSON dump.
type Snapshot struct {
	Graph []Node `json:"graph" toml:"graph"`
}

// FormatFor picks a format from the file extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads and indexes the snapshot at path.
func Load(path string, opts Options) (*Index, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return New(snap.Graph, opts)
}

// Decode reads a snapshot in the given format from r.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	var snap Snapshot
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).Decode(&snap); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &snap, nil
}
