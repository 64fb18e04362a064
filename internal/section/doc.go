// Package section renders catalog items into page fragments: a card grid,
// an alternating media strip, and a single-item detail view with its delete
// flow.
//
// Renderers take everything they need as arguments and return
// template.HTML. Item content is sanitized upstream and inserted verbatim.
// Extension points are filled from a [hooks.Set]; hook output is computed
// before template execution so a panicking hook reaches the caller.
package section
