package marker

// Watermark computes the commit to diff from for an incremental review.
// commits is the PR's commit list, oldest first; reviewed is the set of SHAs
// recorded in the summary comment. The newest commit that was already reviewed
// becomes the watermark. When nothing matches, or the match is the current
// head (nothing new to review), the watermark falls back to the PR's base
// commit so the full base→head range is reviewed — this covers both the very
// first run and runs after history rewrites.
func Watermark(commits []string, reviewed []string, baseSHA, headSHA string) string {
	seen := make(map[string]struct{}, len(reviewed))
	for _, sha := range reviewed {
		seen[sha] = struct{}{}
	}

	for i := len(commits) - 1; i >= 0; i-- {
		if _, ok := seen[commits[i]]; ok {
			if commits[i] == headSHA {
				return baseSHA
			}
			return commits[i]
		}
	}
	return baseSHA
}
