package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/extract"
)

// SchemaVersion is bumped when Document changes incompatibly.
const SchemaVersion = 1

// Document is the serialized result of one scan.
type Document struct {
	Version    int                    `yaml:"version" json:"version" msgpack:"version"`
	Source     string                 `yaml:"source" json:"source" msgpack:"source"`
	Filters    []extract.Filter       `yaml:"filters" json:"filters" msgpack:"filters"`
	Failures   []extract.ParseFailure `yaml:"failures" json:"failures" msgpack:"failures"`
	Registered []string               `yaml:"registered,omitempty" json:"registered,omitempty" msgpack:"registered,omitempty"`
	Coverage   batch.Coverage         `yaml:"coverage" json:"coverage" msgpack:"coverage"`
}

// NewDocument builds the document for a driver result.
func NewDocument(source string, res *batch.Result) *Document {
	return &Document{
		Version:    SchemaVersion,
		Source:     source,
		Filters:    res.Filters,
		Failures:   res.Failures,
		Registered: res.Registered,
		Coverage:   res.Coverage,
	}
}

// Write encodes doc to w.
func Write(w io.Writer, doc *Document, format Format) error {
	return Encode(w, doc, format)
}

// Encode writes any value in format. Commands use it for query results
// that are not whole documents.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encode msgpack: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Read decodes a document written by Write.
func Read(r io.Reader, format Format) (*Document, error) {
	doc := &Document{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(doc)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(doc)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if doc.Version > SchemaVersion {
		return nil, fmt.Errorf("document version %d is newer than supported version %d", doc.Version, SchemaVersion)
	}
	return doc, nil
}

// WriteFile encodes doc into path, replacing it atomically.
func WriteFile(path string, doc *Document, format Format) error {
	var buf bytes.Buffer
	if err := Write(&buf, doc, format); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".ffscan-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile decodes the document at path.
func ReadFile(path string, format Format) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format)
}
