package content

import (
	"fmt"
	"io"
	"os"
	"time"
)

// defaultReadAttempts bounds how often a file that changes mid-read is
// re-read before the fetch gives up.
const defaultReadAttempts = 3

// Outcome is the result tag of a conditional fetch.
type Outcome int

// Fetch outcomes.
const (
	OutcomeFresh Outcome = iota
	OutcomeNotModified
	OutcomeNotFound
)

// String returns the lower-case outcome name, as used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Snapshot is the full content of the watched file at one point in time.
// Content must not be modified by callers.
type Snapshot struct {
	Path        string
	Content     []byte
	Fingerprint string
	ModTime     time.Time
	Size        int64
}

// Request is a conditional fetch. The zero value is an unconditional fetch.
type Request struct {
	// IfNoneMatch lists fingerprints the caller already holds.
	IfNoneMatch []string

	// MatchAny treats any existing file as unchanged.
	MatchAny bool
}

// Conditional returns a request carrying a single known fingerprint. An
// empty fingerprint yields an unconditional request.
func Conditional(fingerprint string) Request {
	if fingerprint == "" {
		return Request{}
	}

	return Request{IfNoneMatch: []string{fingerprint}}
}

func (r Request) matches(fingerprint string) bool {
	if r.MatchAny {
		return true
	}

	for _, fp := range r.IfNoneMatch {
		if fp == fingerprint {
			return true
		}
	}

	return false
}

// Response is the typed result of a fetch.
type Response struct {
	Outcome Outcome

	// Fingerprint is set for OutcomeFresh and OutcomeNotModified.
	Fingerprint string

	// Content is set for OutcomeFresh only.
	Content []byte

	// ModTime is the modification time of the file that was read.
	ModTime time.Time

	// Err is set for OutcomeNotFound and is a *NotFoundError.
	Err error
}

// Option configures a Source.
type Option func(*Source)

// WithCache enables the snapshot cache keyed by modification time and size.
func WithCache(enabled bool) Option {
	return func(s *Source) {
		if enabled {
			s.cache = &snapshotCache{}
		} else {
			s.cache = nil
		}
	}
}

// WithReadAttempts sets how often an unstable file is re-read.
func WithReadAttempts(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// Source reads one file. It is safe for concurrent use and never writes to
// the file.
type Source struct {
	path     string
	cache    *snapshotCache
	attempts int
}

// NewSource returns a Source for path. Caching is disabled unless WithCache
// is given.
func NewSource(path string, opts ...Option) *Source {
	s := &Source{
		path:     path,
		attempts: defaultReadAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Path returns the watched path.
func (s *Source) Path() string { return s.path }

// Invalidate drops any cached snapshot. It is a no-op without a cache.
func (s *Source) Invalidate() {
	if s.cache != nil {
		s.cache.clear()
	}
}

// Fetch reads the file and evaluates req against its fingerprint.
func (s *Source) Fetch(req Request) Response {
	snap, err := s.Snapshot()
	if err != nil {
		return Response{Outcome: OutcomeNotFound, Err: err}
	}

	if req.matches(snap.Fingerprint) {
		return Response{
			Outcome:     OutcomeNotModified,
			Fingerprint: snap.Fingerprint,
			ModTime:     snap.ModTime,
		}
	}

	return Response{
		Outcome:     OutcomeFresh,
		Fingerprint: snap.Fingerprint,
		Content:     snap.Content,
		ModTime:     snap.ModTime,
	}
}

// Snapshot returns the current content of the file. Errors are always
// *NotFoundError.
func (s *Source) Snapshot() (*Snapshot, error) {
	if s.cache != nil {
		info, err := os.Stat(s.path)
		if err != nil {
			return nil, &NotFoundError{Path: s.path, Err: err}
		}

		if info.IsDir() {
			return nil, &NotFoundError{Path: s.path, Err: ErrIsDirectory}
		}

		if snap, ok := s.cache.lookup(info.ModTime(), info.Size()); ok {
			return snap, nil
		}
	}

	snap, err := s.read()
	if err != nil {
		if s.cache != nil {
			s.cache.clear()
		}

		return nil, err
	}

	if s.cache != nil {
		s.cache.store(snap)
	}

	return snap, nil
}

func (s *Source) read() (*Snapshot, error) {
	for range s.attempts {
		snap, stable, err := readOnce(s.path)
		if err != nil {
			return nil, err
		}

		if stable {
			return snap, nil
		}
	}

	return nil, &NotFoundError{Path: s.path, Err: ErrUnstable}
}

// readOnce reads the whole file and reports whether its size and
// modification time were the same before and after the read.
func readOnce(path string) (*Snapshot, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, &NotFoundError{Path: path, Err: err}
	}
	defer f.Close()

	before, err := f.Stat()
	if err != nil {
		return nil, false, &NotFoundError{Path: path, Err: err}
	}

	if before.IsDir() {
		return nil, false, &NotFoundError{Path: path, Err: ErrIsDirectory}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, &NotFoundError{Path: path, Err: err}
	}

	after, err := os.Stat(path)
	if err != nil {
		return nil, false, &NotFoundError{Path: path, Err: err}
	}

	stable := after.Size() == before.Size() &&
		after.ModTime().Equal(before.ModTime()) &&
		int64(len(data)) == after.Size()

	return &Snapshot{
		Path:        path,
		Content:     data,
		Fingerprint: Fingerprint(data),
		ModTime:     after.ModTime(),
		Size:        after.Size(),
	}, stable, nil
}
