package catalog

import "time"

type Source string

const (
	SourceUnknown Source = "unknown"
	SourceSeed    Source = "seed"
	SourceFile    Source = "file"
	SourceS3      Source = "s3"
)

type Meta struct {
	Version    string    `json:"version,omitempty"`
	Hash       string    `json:"sha256,omitempty"`
	Source     Source    `json:"source,omitempty"`
	Signed     bool      `json:"signed"`
	VerifiedAt time.Time `json:"verified_at,omitzero"`
}

// Snapshot is an immutable catalog. Replace it, never modify it in place.
type Snapshot struct {
	Items    []Item
	Meta     Meta
	LoadedAt time.Time
}
