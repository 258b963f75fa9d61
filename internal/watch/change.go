package watch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hupe1980/ariel/internal/content"
	"github.com/hupe1980/ariel/internal/diagram"
)

// ChangeKind classifies a change between two observations of the file.
type ChangeKind string

// Change kinds.
const (
	ChangeCreated   ChangeKind = "created"
	ChangeModified  ChangeKind = "modified"
	ChangeRemoved   ChangeKind = "removed"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeMissing   ChangeKind = "missing"
)

// Change describes the difference between the previous and the current
// observation of the watched file.
type Change struct {
	Kind        ChangeKind
	Fingerprint string

	// DiagramType is the detected diagram keyword; empty when TypeErr is set.
	DiagramType string
	TypeErr     error

	// Title is the front-matter title, if any.
	Title string

	Added   int
	Removed int

	// Diff is a unified diff between the previous and current content.
	Diff string

	// Err is the read error for ChangeRemoved and ChangeMissing.
	Err error
}

// Summary returns a human-readable one-line summary.
func (c Change) Summary() string {
	switch c.Kind {
	case ChangeRemoved, ChangeMissing:
		return "file not available"
	case ChangeUnchanged:
		return "no content changes"
	}

	parts := []string{fmt.Sprintf("+%d/-%d line(s)", c.Added, c.Removed)}

	if c.TypeErr != nil {
		parts = append(parts, "invalid: "+c.TypeErr.Error())
	} else {
		parts = append(parts, c.DiagramType)
	}

	if c.Title != "" {
		parts = append(parts, fmt.Sprintf("%q", c.Title))
	}

	return strings.Join(parts, ", ")
}

// Tracker remembers the last observed snapshot and turns each new
// observation into a Change. It is safe for concurrent use.
type Tracker struct {
	label string

	mu   sync.Mutex
	prev *content.Snapshot
}

// NewTracker returns a Tracker whose diffs are labelled with label.
func NewTracker(label string) *Tracker {
	return &Tracker{label: label}
}

// Prime records snap as the baseline without reporting a change.
func (t *Tracker) Prime(snap *content.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prev = snap
}

// Observe compares the result of a snapshot read with the previous one.
func (t *Tracker) Observe(snap *content.Snapshot, readErr error) (Change, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.prev

	if readErr != nil {
		t.prev = nil

		kind := ChangeRemoved
		if prev == nil {
			kind = ChangeMissing
		}

		return Change{Kind: kind, Err: readErr}, nil
	}

	if snap == nil {
		return Change{}, errors.New("observe: nil snapshot without error")
	}

	t.prev = snap

	change := Change{Fingerprint: snap.Fingerprint}
	change.DiagramType, change.TypeErr = diagram.DetectType(snap.Content)

	fm, fmErr := diagram.ParseFrontMatter(snap.Content)
	if fmErr != nil && change.TypeErr == nil {
		change.DiagramType, change.TypeErr = "", fmErr
	}

	change.Title = fm.Title

	var before []byte

	switch {
	case prev == nil:
		change.Kind = ChangeCreated
	case prev.Fingerprint == snap.Fingerprint:
		change.Kind = ChangeUnchanged
		return change, nil
	default:
		change.Kind = ChangeModified
		before = prev.Content
	}

	d, err := LineDiff(before, snap.Content, t.label)
	if err != nil {
		return change, err
	}

	change.Diff, change.Added, change.Removed = d.Unified, d.Added, d.Removed

	return change, nil
}

// DiffResult holds a unified diff and its line statistics.
type DiffResult struct {
	Unified string
	Added   int
	Removed int
}

// LineDiff computes a unified diff between two versions of a file.
func LineDiff(prev, curr []byte, label string) (DiffResult, error) {
	a := difflib.SplitLines(string(prev))
	b := difflib.SplitLines(string(curr))

	if len(prev) == 0 {
		a = nil
	}

	if len(curr) == 0 {
		b = nil
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: label + " (previous)",
		ToFile:   label,
		Context:  3,
	})
	if err != nil {
		return DiffResult{}, fmt.Errorf("computing diff: %w", err)
	}

	result := DiffResult{Unified: unified}

	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			result.Removed += op.I2 - op.I1
			result.Added += op.J2 - op.J1
		case 'd':
			result.Removed += op.I2 - op.I1
		case 'i':
			result.Added += op.J2 - op.J1
		}
	}

	return result, nil
}
