package model

// FileResultKind classifies the outcome of processing one file.
type FileResultKind int

const (
	FileOK FileResultKind = iota
	FileSkipped
	FileFailed
)

// FileResult records how one file fared during a run. Skipped and Failed
// results carry a human-readable reason surfaced in the status comment.
type FileResult struct {
	Filename string
	Kind     FileResultKind
	Reason   string
}

// OK returns a successful result for filename.
func OK(filename string) FileResult {
	return FileResult{Filename: filename, Kind: FileOK}
}

// Skipped returns a skipped result with the given reason.
func Skipped(filename, reason string) FileResult {
	return FileResult{Filename: filename, Kind: FileSkipped, Reason: reason}
}

// Failed returns a failed result with the given reason.
func Failed(filename, reason string) FileResult {
	return FileResult{Filename: filename, Kind: FileFailed, Reason: reason}
}
