// Package cryptoutil holds the integrity checks used when loading a catalog
// and when authenticating admin requests: constant-time comparisons, SHA-256
// digests, and KMS-backed signature verification.
package cryptoutil
