package patch

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// TokenCounter reports the prompt token count of text.
type TokenCounter func(text string) int

// Packer accumulates prompt fragments against a fixed token ceiling.
// Packing is greedy and order-preserving: the first fragment that would
// overflow is rejected, and hunk packing stops there rather than skipping
// ahead to smaller hunks. Determinism over optimality.
type Packer struct {
	budget int
	used   int
	count  TokenCounter
}

// NewPacker creates a Packer with budget tokens remaining and an initial
// running count of used tokens (the prompt skeleton).
func NewPacker(budget, used int, count TokenCounter) *Packer {
	return &Packer{budget: budget, used: used, count: count}
}

// Add appends text's token cost if it fits under the ceiling, reporting
// whether it did. A rejected fragment leaves the running count untouched.
func (p *Packer) Add(text string) bool {
	n := p.count(text)
	if p.used+n > p.budget {
		return false
	}
	p.used += n
	return true
}

// Used returns the running token count.
func (p *Packer) Used() int { return p.used }

// PackedHunks is the result of packing one file's hunks.
type PackedHunks struct {
	// Text is the concatenated annotated hunk blocks that fit.
	Text string
	// Packed and Total count hunks that fit vs. hunks available.
	Packed int
	Total  int
	// Ranges holds the new-file ranges of the packed hunks, for response
	// remapping.
	Ranges []model.Hunk
}

// PackHunks greedily adds hunks in original order, stopping at the first hunk
// that would exceed the budget. Zero packed hunks means the file's diff is too
// large for one request; the caller records it as skipped rather than retrying
// with a smaller request.
func PackHunks(p *Packer, hunks []model.Hunk) PackedHunks {
	out := PackedHunks{Total: len(hunks)}
	var b strings.Builder

	for _, h := range hunks {
		block := FormatHunk(h)
		if !p.Add(block) {
			break
		}
		b.WriteString(block)
		out.Packed++
		out.Ranges = append(out.Ranges, h)
	}

	out.Text = b.String()
	return out
}

// FormatHunk renders one hunk as the side-by-side old/new block handed to the
// model.
func FormatHunk(h model.Hunk) string {
	return fmt.Sprintf("\n---new_hunk---\n```\n%s\n```\n\n---old_hunk---\n```\n%s\n```\n", h.NewHunk, h.OldHunk)
}
