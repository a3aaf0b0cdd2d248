// Package model defines the domain types shared across the review pipeline.
package model

// Hunk is one contiguous region of a unified diff, bounded by an @@ header.
// Old and New ranges are derived strictly from the header; both ends may be
// degenerate (End == Start - 1 is impossible here because lengths default to 1,
// but a zero-length side collapses to a one-line anchor at Start).
type Hunk struct {
	OldStart int
	OldEnd   int
	NewStart int
	NewEnd   int

	// Raw is the hunk text exactly as it appeared in the patch, header included.
	Raw string

	// OldHunk and NewHunk are the two side-by-side context blocks handed to the
	// model. Lines that exist in the new file carry an absolute "N: " line-number
	// prefix so later stages can recover exact positions without re-parsing.
	OldHunk string
	NewHunk string
}

// FileChange is everything the pipeline knows about one changed file.
// It lives for the duration of a single run and is discarded after submission.
type FileChange struct {
	Filename    string
	BaseContent string
	Patch       string
	Hunks       []Hunk
}
