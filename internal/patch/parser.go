// Package patch splits unified diffs into hunks and packs them into
// token-budgeted model requests.
package patch

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// hunkHeader matches "@@ -a,b +c,d @@"; the lengths b and d are optional and
// default to 1 when omitted.
var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Context lines inside the first and last three lines of a hunk are padding
// the host API will not accept comments on, so they are left unannotated.
const contextPadding = 3

// SplitHunks splits a single file's unified patch into hunks. A patch with no
// recognizable hunk header yields nil (binary or rename-only diffs). A hunk
// whose header fails to parse is skipped with a warning, never fatal.
func SplitHunks(patch string) []model.Hunk {
	patch = strings.TrimSuffix(patch, "\n")
	if patch == "" {
		return nil
	}

	lines := strings.Split(patch, "\n")
	var starts []int
	for i, line := range lines {
		if strings.HasPrefix(line, "@@") {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}

	var hunks []model.Hunk
	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		raw := strings.Join(lines[start:end], "\n")
		h, err := parseHunk(lines[start], lines[start+1:end])
		if err != nil {
			slog.Warn("skipping unparseable hunk", "error", err)
			continue
		}
		h.Raw = raw
		hunks = append(hunks, h)
	}

	return hunks
}

// parseHunk parses one hunk's header and body into a Hunk with annotated
// old/new context blocks.
func parseHunk(header string, body []string) (model.Hunk, error) {
	m := hunkHeader.FindStringSubmatch(header)
	if m == nil {
		return model.Hunk{}, fmt.Errorf("invalid hunk header %q", header)
	}

	oldStart := atoiDefault(m[1], 1)
	oldLen := atoiDefault(m[2], 1)
	newStart := atoiDefault(m[3], 1)
	newLen := atoiDefault(m[4], 1)

	h := model.Hunk{
		OldStart: oldStart,
		OldEnd:   oldStart + max(oldLen-1, 0),
		NewStart: newStart,
		NewEnd:   newStart + max(newLen-1, 0),
	}

	h.OldHunk, h.NewHunk = annotate(body, newStart)
	return h, nil
}

// annotate walks the hunk body and builds the old and new context blocks.
// Removed lines go only to the old side. Added lines go to the new side with
// an absolute new-file line-number prefix. Context lines go to both sides and
// carry the prefix only when the host API could anchor a comment there, except
// in removal-only hunks where every surviving line is annotated so the model
// has at least one addressable line.
func annotate(body []string, newStart int) (oldHunk, newHunk string) {
	removalOnly := true
	for _, line := range body {
		if strings.HasPrefix(line, "+") {
			removalOnly = false
			break
		}
	}

	var oldLines, newLines []string
	newLine := newStart

	for i, line := range body {
		switch {
		case strings.HasPrefix(line, "-"):
			oldLines = append(oldLines, line[1:])
		case strings.HasPrefix(line, "+"):
			newLines = append(newLines, fmt.Sprintf("%d: %s", newLine, line[1:]))
			newLine++
		default:
			oldLines = append(oldLines, line)
			if removalOnly || (i >= contextPadding && i < len(body)-contextPadding) {
				newLines = append(newLines, fmt.Sprintf("%d: %s", newLine, line))
			} else {
				newLines = append(newLines, line)
			}
			newLine++
		}
	}

	return strings.Join(oldLines, "\n"), strings.Join(newLines, "\n")
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
