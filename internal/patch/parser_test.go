package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoHunkPatch = `@@ -1,4 +1,5 @@
 package main
+
+import "fmt"

 func main() {
@@ -10,3 +11,3 @@
 	x := 1
-	y := 2
+	y := 3
 	_ = x
`

func TestSplitHunks_Ranges(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		oldStart int
		oldEnd   int
		newStart int
		newEnd   int
	}{
		{"both lengths", "@@ -1,4 +1,5 @@", 1, 4, 1, 5},
		{"omitted lengths default to 1", "@@ -7 +8 @@", 7, 7, 8, 8},
		{"zero new length collapses to anchor", "@@ -5,3 +4,0 @@", 5, 7, 4, 4},
		{"zero old length", "@@ -5,0 +6,2 @@", 5, 5, 6, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hunks := SplitHunks(tt.header + "\n context\n")
			require.Len(t, hunks, 1)
			assert.Equal(t, tt.oldStart, hunks[0].OldStart)
			assert.Equal(t, tt.oldEnd, hunks[0].OldEnd)
			assert.Equal(t, tt.newStart, hunks[0].NewStart)
			assert.Equal(t, tt.newEnd, hunks[0].NewEnd)
		})
	}
}

func TestSplitHunks_HeaderLengthProperty(t *testing.T) {
	// newEnd - newStart + 1 == max(d,1) and likewise for the old side.
	headers := []struct {
		patch          string
		oldLen, newLen int
	}{
		{"@@ -1,4 +1,5 @@\n x\n", 4, 5},
		{"@@ -3 +3 @@\n x\n", 1, 1},
		{"@@ -10,0 +11,2 @@\n+x\n+y\n", 1, 2},
		{"@@ -8,6 +9,0 @@\n-x\n", 6, 1},
	}

	for _, h := range headers {
		hunks := SplitHunks(h.patch)
		require.Len(t, hunks, 1)
		assert.Equal(t, h.oldLen, hunks[0].OldEnd-hunks[0].OldStart+1)
		assert.Equal(t, h.newLen, hunks[0].NewEnd-hunks[0].NewStart+1)
	}
}

func TestSplitHunks_Lossless(t *testing.T) {
	hunks := SplitHunks(twoHunkPatch)
	require.Len(t, hunks, 2)

	var raws []string
	for _, h := range hunks {
		raws = append(raws, h.Raw)
	}
	assert.Equal(t, strings.TrimSuffix(twoHunkPatch, "\n"), strings.Join(raws, "\n"))
}

func TestSplitHunks_NoHeader(t *testing.T) {
	assert.Nil(t, SplitHunks("Binary files a/img.png and b/img.png differ\n"))
	assert.Nil(t, SplitHunks(""))
}

func TestSplitHunks_Annotation(t *testing.T) {
	patch := "@@ -1,3 +1,4 @@\n a\n-b\n+b2\n+b3\n c\n"
	hunks := SplitHunks(patch)
	require.Len(t, hunks, 1)

	// Old side: removed line kept without its marker, added lines absent.
	assert.Equal(t, " a\nb\n c", hunks[0].OldHunk)

	// New side: added lines numbered from the hunk's new start; the context
	// lines fall inside the three-line padding and stay unannotated.
	assert.Equal(t, " a\n2: b2\n3: b3\n c", hunks[0].NewHunk)
}

func TestSplitHunks_RemovalOnlyAnnotatesContext(t *testing.T) {
	patch := "@@ -2,3 +2,2 @@\n a\n-gone\n b\n"
	hunks := SplitHunks(patch)
	require.Len(t, hunks, 1)

	// With no additions, every surviving line gets a number so the model has
	// an addressable anchor.
	assert.Equal(t, "2:  a\n3:  b", hunks[0].NewHunk)
	assert.Equal(t, 2, hunks[0].NewStart)
	assert.Equal(t, 3, hunks[0].NewEnd)
}

func TestSplitHunks_SkipsBadHeader(t *testing.T) {
	// A second "@@" line that is not a valid header is dropped, the rest kept.
	patch := "@@ -1,2 +1,2 @@\n a\n b\n@@ garbage @@\n x\n"
	hunks := SplitHunks(patch)
	require.Len(t, hunks, 1)
	assert.Equal(t, 1, hunks[0].NewStart)
}
