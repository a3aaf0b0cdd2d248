package review

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// runStatus collects per-file outcomes across the run's concurrent tasks and
// renders the status section attached to the submitted review.
type runStatus struct {
	mu             sync.Mutex
	results        []model.FileResult
	approved       int
	commented      int
	triageApproved int
}

func (st *runStatus) record(r model.FileResult) {
	st.mu.Lock()
	st.results = append(st.results, r)
	st.mu.Unlock()
}

// addApproved counts an LGTM verdict that was not posted as a comment.
func (st *runStatus) addApproved(n int) {
	st.mu.Lock()
	st.approved += n
	st.mu.Unlock()
}

func (st *runStatus) addCommented(n int) {
	st.mu.Lock()
	st.commented += n
	st.mu.Unlock()
}

// addTriageApproved counts a file whose triage verdict skipped deep review, so
// the status section does not claim it was reviewed.
func (st *runStatus) addTriageApproved(n int) {
	st.mu.Lock()
	st.triageApproved += n
	st.mu.Unlock()
}

// render produces the user-visible status section: counts first, then any
// skipped or failed files enumerated by name and reason. A run with failures
// still reads as a successful partial review.
func (st *runStatus) render(reviewedBase, head string) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var skipped, failed []model.FileResult
	var ok int
	for _, r := range st.results {
		switch r.Kind {
		case model.FileOK:
			ok++
		case model.FileSkipped:
			skipped = append(skipped, r)
		case model.FileFailed:
			failed = append(failed, r)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Review status**\n\nCommits reviewed: `%s` to `%s`\n\n", short(reviewedBase), short(head))
	fmt.Fprintf(&b, "Files reviewed: %d · approved by triage: %d · comments posted: %d · hunks approved: %d\n", ok, st.triageApproved, st.commented, st.approved)

	writeGroup(&b, "Skipped files", skipped)
	writeGroup(&b, "Failed files", failed)

	return b.String()
}

func writeGroup(b *strings.Builder, title string, results []model.FileResult) {
	if len(results) == 0 {
		return
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Filename < results[j].Filename })

	fmt.Fprintf(b, "\n<details>\n<summary>%s (%d)</summary>\n\n", title, len(results))
	for _, r := range results {
		fmt.Fprintf(b, "- `%s` — %s\n", r.Filename, r.Reason)
	}
	b.WriteString("\n</details>\n")
}

func short(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
