// Package marketdata defines the fixed-size quote snapshot the feed
// publishes. Everything here is a plain value type: no pointers, no
// slices, so a Quote can be copied word by word.
package marketdata
