// Package catalog holds the content items rendered by the section engine.
//
// The core components are:
//   - [Item]: one post, blog entry, event, or product
//   - [Filter]: bounded, order-preserving tag selection
//   - [Store]: the active [Snapshot] behind an atomic pointer
//   - [Loader]: fetches a catalog document from S3 using the hash in SSM,
//     verifies its digest and optional KMS signature
//   - [Watcher]: polls SSM and hot-swaps new catalogs into the Store
package catalog
