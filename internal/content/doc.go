// Package content reads the watched diagram file and decides, for a
// conditional fetch, whether the caller receives fresh content, a
// not-modified verdict, or a not-found error.
//
// Change detection is based on a fingerprint of the exact bytes, never on
// modification times, so touching a file without changing it does not cause
// the client to re-render.
package content
