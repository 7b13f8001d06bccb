package stagehand_test

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/fwojciec/stagehand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleAdditionPatch() *stagehand.Patch {
	return &stagehand.Patch{
		OldPath: "file.txt",
		NewPath: "file.txt",
		Hunks: []stagehand.Hunk{
			{
				OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 4,
				Lines: []stagehand.Line{
					{Type: stagehand.LineContext, Content: "a", OldLineNum: 1, NewLineNum: 1},
					{Type: stagehand.LineAdded, Content: "b", NewLineNum: 2},
					{Type: stagehand.LineContext, Content: "c", OldLineNum: 2, NewLineNum: 3},
				},
			},
		},
	}
}

func TestExtract_SingleAddedLine(t *testing.T) {
	t.Parallel()

	doc := stagehand.NewDocument(singleAdditionPatch())
	// Record 2 is the "+b" row.
	require.Equal(t, stagehand.LineAdded, doc.Records[2].Type)

	got, err := stagehand.Extract(doc, 2, 2, false)
	require.NoError(t, err)

	want := strings.Join([]string{
		"diff --git a/file.txt b/file.txt",
		"--- a/file.txt",
		"+++ b/file.txt",
		"@@ -1,1 +1,2 @@",
		" a",
		"+b",
		"",
	}, "\n")
	assert.Equal(t, want, string(got))
}

func TestExtract_SingleAddedLineReversed(t *testing.T) {
	t.Parallel()

	doc := stagehand.NewDocument(singleAdditionPatch())

	got, err := stagehand.Extract(doc, 2, 2, true)
	require.NoError(t, err)

	// The reversal is baked in: applying these bytes forward removes b.
	want := strings.Join([]string{
		"diff --git a/file.txt b/file.txt",
		"--- a/file.txt",
		"+++ b/file.txt",
		"@@ -1,2 +1,1 @@",
		" a",
		"-b",
		"",
	}, "\n")
	assert.Equal(t, want, string(got))
}

func TestExtract_UnselectedChangePolicy(t *testing.T) {
	t.Parallel()

	patch := &stagehand.Patch{
		OldPath: "file.txt",
		NewPath: "file.txt",
		Hunks: []stagehand.Hunk{
			{
				OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 3,
				Lines: []stagehand.Line{
					{Type: stagehand.LineContext, Content: "m", OldLineNum: 1, NewLineNum: 1},
					{Type: stagehand.LineAdded, Content: "a", NewLineNum: 2},
					{Type: stagehand.LineDeleted, Content: "b", OldLineNum: 2},
					{Type: stagehand.LineAdded, Content: "c", NewLineNum: 3},
				},
			},
		},
	}

	t.Run("forward drops unselected additions", func(t *testing.T) {
		t.Parallel()
		doc := stagehand.NewDocument(patch)
		// Select only the "-b" row; "+a" before it is unselected and the
		// trailing "+c" is beyond the last selected line.
		require.Equal(t, stagehand.LineDeleted, doc.Records[3].Type)

		got, err := stagehand.Extract(doc, 3, 3, false)
		require.NoError(t, err)

		want := strings.Join([]string{
			"diff --git a/file.txt b/file.txt",
			"--- a/file.txt",
			"+++ b/file.txt",
			"@@ -1,2 +1,1 @@",
			" m",
			"-b",
			"",
		}, "\n")
		assert.Equal(t, want, string(got))
	})

	t.Run("reverse demotes unselected additions to context", func(t *testing.T) {
		t.Parallel()
		doc := stagehand.NewDocument(patch)

		got, err := stagehand.Extract(doc, 3, 3, true)
		require.NoError(t, err)

		// "+a" survives as context because it exists in the apply target.
		want := strings.Join([]string{
			"diff --git a/file.txt b/file.txt",
			"--- a/file.txt",
			"+++ b/file.txt",
			"@@ -1,2 +1,3 @@",
			" m",
			" a",
			"+b",
			"",
		}, "\n")
		assert.Equal(t, want, string(got))
	})
}

func TestExtract_MultiHunkStartShift(t *testing.T) {
	t.Parallel()

	patch := &stagehand.Patch{
		OldPath: "f",
		NewPath: "f",
		Hunks: []stagehand.Hunk{
			{
				OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 2,
				Lines: []stagehand.Line{
					{Type: stagehand.LineContext, Content: "x", OldLineNum: 1, NewLineNum: 1},
					{Type: stagehand.LineAdded, Content: "a", NewLineNum: 2},
				},
			},
			{
				OldStart: 10, OldCount: 2, NewStart: 11, NewCount: 1,
				Lines: []stagehand.Line{
					{Type: stagehand.LineContext, Content: "q", OldLineNum: 10, NewLineNum: 11},
					{Type: stagehand.LineDeleted, Content: "z", OldLineNum: 11},
				},
			},
		},
	}
	doc := stagehand.NewDocument(patch)

	got, err := stagehand.Extract(doc, 2, 5, false)
	require.NoError(t, err)

	// The second hunk's new start carries the +1 delta of the first.
	want := strings.Join([]string{
		"diff --git a/f b/f",
		"--- a/f",
		"+++ b/f",
		"@@ -1,1 +1,2 @@",
		" x",
		"+a",
		"@@ -10,2 +11,1 @@",
		" q",
		"-z",
		"",
	}, "\n")
	assert.Equal(t, want, string(got))
}

func TestExtract_PureInsertionAnchorsAfterPrecedingLine(t *testing.T) {
	t.Parallel()

	patch := &stagehand.Patch{
		OldPath: "f",
		NewPath: "f",
		Hunks: []stagehand.Hunk{
			{
				OldStart: 5, OldCount: 2, NewStart: 5, NewCount: 3,
				Lines: []stagehand.Line{
					{Type: stagehand.LineAdded, Content: "n", NewLineNum: 5},
					{Type: stagehand.LineContext, Content: "r", OldLineNum: 5, NewLineNum: 6},
					{Type: stagehand.LineContext, Content: "s", OldLineNum: 6, NewLineNum: 7},
				},
			},
		},
	}
	doc := stagehand.NewDocument(patch)

	got, err := stagehand.Extract(doc, 1, 1, false)
	require.NoError(t, err)

	want := strings.Join([]string{
		"diff --git a/f b/f",
		"--- a/f",
		"+++ b/f",
		"@@ -4,0 +5,1 @@",
		"+n",
		"",
	}, "\n")
	assert.Equal(t, want, string(got))
}

func TestExtract_EmptySelection(t *testing.T) {
	t.Parallel()

	doc := stagehand.NewDocument(singleAdditionPatch())

	// Header row and leading context only.
	_, err := stagehand.Extract(doc, 0, 1, false)
	assert.ErrorIs(t, err, stagehand.ErrEmptySelection)
}

func TestExtract_MalformedRangePanics(t *testing.T) {
	t.Parallel()

	doc := stagehand.NewDocument(singleAdditionPatch())

	assert.Panics(t, func() { stagehand.Extract(doc, 2, 1, false) })
	assert.Panics(t, func() { stagehand.Extract(doc, -1, 1, false) })
	assert.Panics(t, func() { stagehand.Extract(doc, 0, len(doc.Records), false) })
}

func TestExtractHunk(t *testing.T) {
	t.Parallel()

	patch := &stagehand.Patch{
		OldPath: "file.txt",
		NewPath: "file.txt",
		Hunks: []stagehand.Hunk{
			{
				OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 3,
				Lines: []stagehand.Line{
					{Type: stagehand.LineContext, Content: "a", OldLineNum: 1, NewLineNum: 1},
					{Type: stagehand.LineAdded, Content: "b", NewLineNum: 2},
					{Type: stagehand.LineContext, Content: "c", OldLineNum: 2, NewLineNum: 3},
				},
			},
		},
	}

	t.Run("keeps the whole hunk", func(t *testing.T) {
		t.Parallel()
		got, err := stagehand.ExtractHunk(patch, 0, false)
		require.NoError(t, err)

		want := strings.Join([]string{
			"diff --git a/file.txt b/file.txt",
			"--- a/file.txt",
			"+++ b/file.txt",
			"@@ -1,2 +1,3 @@",
			" a",
			"+b",
			" c",
			"",
		}, "\n")
		assert.Equal(t, want, string(got))
	})

	t.Run("reversed", func(t *testing.T) {
		t.Parallel()
		got, err := stagehand.ExtractHunk(patch, 0, true)
		require.NoError(t, err)

		want := strings.Join([]string{
			"diff --git a/file.txt b/file.txt",
			"--- a/file.txt",
			"+++ b/file.txt",
			"@@ -1,3 +1,2 @@",
			" a",
			"-b",
			" c",
			"",
		}, "\n")
		assert.Equal(t, want, string(got))
	})

	t.Run("no change lines", func(t *testing.T) {
		t.Parallel()
		ctxOnly := &stagehand.Patch{
			OldPath: "f",
			NewPath: "f",
			Hunks: []stagehand.Hunk{
				{
					OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1,
					Lines: []stagehand.Line{
						{Type: stagehand.LineContext, Content: "a", OldLineNum: 1, NewLineNum: 1},
					},
				},
			},
		}
		_, err := stagehand.ExtractHunk(ctxOnly, 0, false)
		assert.ErrorIs(t, err, stagehand.ErrEmptySelection)
	})

	t.Run("out of range panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { stagehand.ExtractHunk(patch, 1, false) })
		assert.Panics(t, func() { stagehand.ExtractHunk(patch, -1, false) })
	})
}

// checkHeaderArithmetic parses every hunk of a rendered patch and verifies
// that the declared lengths match the emitted lines.
func checkHeaderArithmetic(t *testing.T, patch []byte) {
	t.Helper()

	lines := strings.Split(string(patch), "\n")
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "@@ ") {
			continue
		}
		var oldStart, oldLen, newStart, newLen int
		_, err := fmt.Sscanf(lines[i], "@@ -%d,%d +%d,%d @@", &oldStart, &oldLen, &newStart, &newLen)
		require.NoError(t, err, "hunk header %q", lines[i])

		var ctx, add, del int
		for j := i + 1; j < len(lines); j++ {
			switch {
			case strings.HasPrefix(lines[j], "@@ "):
				j = len(lines)
			case strings.HasPrefix(lines[j], " "):
				ctx++
			case strings.HasPrefix(lines[j], "+"):
				add++
			case strings.HasPrefix(lines[j], "-"):
				del++
			}
		}
		assert.Equal(t, oldLen, ctx+del, "old length of %q", lines[i])
		assert.Equal(t, newLen, ctx+add, "new length of %q", lines[i])
	}
}

func TestExtract_HeaderArithmetic(t *testing.T) {
	t.Parallel()

	doc := stagehand.NewDocument(clumpPatch())

	tests := []struct {
		name       string
		start, end int
		reverse    bool
	}{
		{name: "one addition forward", start: 2, end: 2},
		{name: "both additions forward", start: 2, end: 3},
		{name: "deletion forward", start: 4, end: 4},
		{name: "everything forward", start: 1, end: 5},
		{name: "one addition reversed", start: 2, end: 2, reverse: true},
		{name: "deletion reversed", start: 4, end: 4, reverse: true},
		{name: "everything reversed", start: 1, end: 5, reverse: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := stagehand.Extract(doc, tt.start, tt.end, tt.reverse)
			require.NoError(t, err)
			checkHeaderArithmetic(t, got)
		})
	}
}

func TestReverse_Roundtrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		patch *stagehand.Patch
	}{
		{name: "modified file", patch: singleAdditionPatch()},
		{
			name: "added file with mode",
			patch: &stagehand.Patch{
				NewPath:   "hello.txt",
				Operation: stagehand.FileAdded,
				NewMode:   fs.FileMode(0o100644),
				Hunks: []stagehand.Hunk{
					{
						OldStart: 0, OldCount: 0, NewStart: 1, NewCount: 1,
						Lines: []stagehand.Line{
							{Type: stagehand.LineAdded, Content: "hello", NewLineNum: 1},
						},
					},
				},
			},
		},
		{
			name: "renamed file",
			patch: &stagehand.Patch{
				OldPath:   "old.txt",
				NewPath:   "new.txt",
				Operation: stagehand.FileRenamed,
			},
		},
		{
			name: "missing trailing newline",
			patch: &stagehand.Patch{
				OldPath: "f",
				NewPath: "f",
				Hunks: []stagehand.Hunk{
					{
						OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1,
						Lines: []stagehand.Line{
							{Type: stagehand.LineDeleted, Content: "end", OldLineNum: 1, NoNewline: true},
							{Type: stagehand.LineAdded, Content: "end!", NewLineNum: 1, NoNewline: true},
						},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			once := stagehand.Format(tt.patch)
			twice := stagehand.Format(stagehand.Reverse(stagehand.Reverse(tt.patch)))
			assert.Equal(t, string(once), string(twice))
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	t.Run("added file", func(t *testing.T) {
		t.Parallel()
		p := &stagehand.Patch{
			NewPath:   "hello.txt",
			Operation: stagehand.FileAdded,
			NewMode:   fs.FileMode(0o100644),
			Hunks: []stagehand.Hunk{
				{
					OldStart: 0, OldCount: 0, NewStart: 1, NewCount: 1,
					Lines: []stagehand.Line{
						{Type: stagehand.LineAdded, Content: "hello", NewLineNum: 1},
					},
				},
			},
		}
		want := strings.Join([]string{
			"diff --git a/hello.txt b/hello.txt",
			"new file mode 100644",
			"--- /dev/null",
			"+++ b/hello.txt",
			"@@ -0,0 +1,1 @@",
			"+hello",
			"",
		}, "\n")
		assert.Equal(t, want, string(stagehand.Format(p)))
	})

	t.Run("deleted file", func(t *testing.T) {
		t.Parallel()
		p := &stagehand.Patch{
			OldPath:   "gone.txt",
			Operation: stagehand.FileDeleted,
			OldMode:   fs.FileMode(0o100644),
			Hunks: []stagehand.Hunk{
				{
					OldStart: 1, OldCount: 1, NewStart: 0, NewCount: 0,
					Lines: []stagehand.Line{
						{Type: stagehand.LineDeleted, Content: "bye", OldLineNum: 1},
					},
				},
			},
		}
		want := strings.Join([]string{
			"diff --git a/gone.txt b/gone.txt",
			"deleted file mode 100644",
			"--- a/gone.txt",
			"+++ /dev/null",
			"@@ -1,1 +0,0 @@",
			"-bye",
			"",
		}, "\n")
		assert.Equal(t, want, string(stagehand.Format(p)))
	})

	t.Run("rename without content changes", func(t *testing.T) {
		t.Parallel()
		p := &stagehand.Patch{
			OldPath:   "old.txt",
			NewPath:   "new.txt",
			Operation: stagehand.FileRenamed,
		}
		want := strings.Join([]string{
			"diff --git a/old.txt b/new.txt",
			"rename from old.txt",
			"rename to new.txt",
			"",
		}, "\n")
		assert.Equal(t, want, string(stagehand.Format(p)))
	})

	t.Run("binary file", func(t *testing.T) {
		t.Parallel()
		p := &stagehand.Patch{
			OldPath:  "img.png",
			NewPath:  "img.png",
			IsBinary: true,
		}
		want := strings.Join([]string{
			"diff --git a/img.png b/img.png",
			"Binary files a/img.png and b/img.png differ",
			"",
		}, "\n")
		assert.Equal(t, want, string(stagehand.Format(p)))
	})

	t.Run("missing trailing newline marker", func(t *testing.T) {
		t.Parallel()
		p := &stagehand.Patch{
			OldPath: "f",
			NewPath: "f",
			Hunks: []stagehand.Hunk{
				{
					OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1,
					Lines: []stagehand.Line{
						{Type: stagehand.LineDeleted, Content: "end", OldLineNum: 1},
						{Type: stagehand.LineAdded, Content: "end", NewLineNum: 1, NoNewline: true},
					},
				},
			},
		}
		want := strings.Join([]string{
			"diff --git a/f b/f",
			"--- a/f",
			"+++ b/f",
			"@@ -1,1 +1,1 @@",
			"-end",
			"+end",
			"\\ No newline at end of file",
			"",
		}, "\n")
		assert.Equal(t, want, string(stagehand.Format(p)))
	})
}
