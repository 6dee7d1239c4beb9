// Package filter prunes local and remote trees with blacklist/whitelist
// rules before they are compared.
//
// A non-empty whitelist keeps only entries at, below, or on the way to a
// whitelisted path. Blacklisted paths are removed together with their
// subtrees even when a whitelist entry points inside them. Directories that
// lose children to filtering are marked Pruned so that the executor never
// removes content it was told to ignore.
package filter
