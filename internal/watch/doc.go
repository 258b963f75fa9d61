// Package watch observes the watched diagram file with fsnotify. It drops
// stale cache entries as soon as the file is touched, debounces bursts of
// editor events into a single change notification, and describes each
// change as a line diff against the previous content.
//
// Polling clients never depend on the watcher: it only keeps the cache
// honest and the terminal informed.
package watch
