// Package sitehttp serves the public pages: the collection listing, item
// detail pages with the admin delete flow, the slideshow and static assets.
package sitehttp
