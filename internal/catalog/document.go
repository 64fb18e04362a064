package catalog

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/keithlinneman/linnemanlabs-sections/internal/cryptoutil"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

// MaxDocumentBytes bounds a catalog document read from any source.
const MaxDocumentBytes = 8 << 20

// Document is the on-disk and in-bucket catalog format.
type Document struct {
	Version string `json:"version,omitempty"`
	Items   []Item `json:"items"`
}

// Decode reads a catalog document. Unknown fields are rejected so that
// a typo in a field name fails the load instead of silently dropping data.
func Decode(r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return Document{}, xerrors.Wrap(err, "read catalog")
	}
	if len(data) > MaxDocumentBytes {
		return Document{}, xerrors.Newf("catalog exceeds %d bytes", MaxDocumentBytes)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return Document{}, xerrors.Wrap(err, "decode catalog")
	}
	if dec.More() {
		return Document{}, xerrors.New("decode catalog: trailing data after document")
	}
	return doc, nil
}

// LoadFile reads and validates a local catalog and returns it as a snapshot.
func LoadFile(path string, src Source, opts ValidationOptions) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read catalog %s", path)
	}
	return LoadBytes(data, src, opts)
}

// LoadBytes builds a snapshot from an in-memory document.
func LoadBytes(data []byte, src Source, opts ValidationOptions) (*Snapshot, error) {
	if len(data) > MaxDocumentBytes {
		return nil, xerrors.Newf("catalog exceeds %d bytes", MaxDocumentBytes)
	}
	doc, err := decodeBytes(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc.Items, opts); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Snapshot{
		Items: doc.Items,
		Meta: Meta{
			Version:    doc.Version,
			Hash:       cryptoutil.SHA256Hex(data),
			Source:     src,
			VerifiedAt: now,
		},
		LoadedAt: now,
	}, nil
}

// WriteFile writes items back out in the document format.
func WriteFile(path, version string, items []Item) error {
	data, err := json.MarshalIndent(Document{Version: version, Items: items}, "", "  ")
	if err != nil {
		return xerrors.Wrap(err, "encode catalog")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return xerrors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return xerrors.Wrapf(err, "replace %s", path)
	}
	return nil
}
