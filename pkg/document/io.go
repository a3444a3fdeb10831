package document

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/matzehuels/btgraph/pkg/errors"
)

// Marshal encodes the document as indented JSON with a trailing newline.
func Marshal(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes the document to w as indented JSON.
func Write(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}

// Parse decodes a current-schema document. Legacy documents are rejected
// with ErrCodeUnsupportedSchema; use [Migrator.Migrate] to accept both.
func Parse(data []byte) (*Document, error) {
	version, err := DetectVersion(data)
	if err != nil {
		return nil, err
	}
	if version != CurrentVersion {
		return nil, errors.New(errors.ErrCodeUnsupportedSchema, "document has schema version %d and needs migration", version)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, parseError("", err)
	}
	return &d, nil
}

// Read reads and parses a current-schema document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
