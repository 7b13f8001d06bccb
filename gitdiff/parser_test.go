package gitdiff_test

import (
	"bytes"
	"io/fs"
	"strings"
	"testing"

	"github.com/fwojciec/stagehand"
	"github.com/fwojciec/stagehand/gitdiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modifiedDiff = `diff --git a/internal/server.go b/internal/server.go
index 2f1a3b4..9c8d7e6 100644
--- a/internal/server.go
+++ b/internal/server.go
@@ -10,4 +10,5 @@ func (s *Server) Start() error {
 	mux := http.NewServeMux()
 	mux.Handle("/", s.root)
-	return http.ListenAndServe(s.addr, mux)
+	srv := &http.Server{Addr: s.addr, Handler: mux}
+	return srv.ListenAndServe()
 }
`

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("modified file", func(t *testing.T) {
		t.Parallel()
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(modifiedDiff))
		require.NoError(t, err)
		require.Len(t, patches, 1)

		p := patches[0]
		assert.Equal(t, "internal/server.go", p.OldPath)
		assert.Equal(t, "internal/server.go", p.NewPath)
		assert.Equal(t, stagehand.FileModified, p.Operation)
		assert.False(t, p.IsBinary)

		require.Len(t, p.Hunks, 1)
		h := p.Hunks[0]
		assert.Equal(t, 10, h.OldStart)
		assert.Equal(t, 4, h.OldCount)
		assert.Equal(t, 10, h.NewStart)
		assert.Equal(t, 5, h.NewCount)
		assert.Equal(t, "func (s *Server) Start() error {", h.Section)

		require.Len(t, h.Lines, 6)
		assert.Equal(t, stagehand.LineContext, h.Lines[0].Type)
		assert.Equal(t, "\tmux := http.NewServeMux()", h.Lines[0].Content)
		assert.Equal(t, 10, h.Lines[0].OldLineNum)
		assert.Equal(t, 10, h.Lines[0].NewLineNum)

		assert.Equal(t, stagehand.LineDeleted, h.Lines[2].Type)
		assert.Equal(t, 12, h.Lines[2].OldLineNum)
		assert.Equal(t, 0, h.Lines[2].NewLineNum)

		assert.Equal(t, stagehand.LineAdded, h.Lines[3].Type)
		assert.Equal(t, 0, h.Lines[3].OldLineNum)
		assert.Equal(t, 12, h.Lines[3].NewLineNum)
		assert.Equal(t, stagehand.LineAdded, h.Lines[4].Type)
		assert.Equal(t, 13, h.Lines[4].NewLineNum)

		assert.Equal(t, stagehand.LineContext, h.Lines[5].Type)
		assert.Equal(t, 13, h.Lines[5].OldLineNum)
		assert.Equal(t, 14, h.Lines[5].NewLineNum)

		assert.Equal(t, 2, p.Additions())
		assert.Equal(t, 1, p.Deletions())
	})

	t.Run("new file", func(t *testing.T) {
		t.Parallel()
		diff := `diff --git a/docs/notes.txt b/docs/notes.txt
new file mode 100644
index 0000000..3b18e51
--- /dev/null
+++ b/docs/notes.txt
@@ -0,0 +1,2 @@
+hello
+world
`
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		require.NoError(t, err)
		require.Len(t, patches, 1)

		p := patches[0]
		assert.Equal(t, stagehand.FileAdded, p.Operation)
		assert.Equal(t, "", p.OldPath)
		assert.Equal(t, "docs/notes.txt", p.NewPath)
		assert.Equal(t, fs.FileMode(0o100644), p.NewMode)

		require.Len(t, p.Hunks, 1)
		assert.Equal(t, 0, p.Hunks[0].OldCount)
		assert.Equal(t, 2, p.Hunks[0].NewCount)
		assert.Equal(t, "hello", p.Hunks[0].Lines[0].Content)
	})

	t.Run("deleted file", func(t *testing.T) {
		t.Parallel()
		diff := `diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index 3b18e51..0000000
--- a/gone.txt
+++ /dev/null
@@ -1,1 +0,0 @@
-bye
`
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		require.NoError(t, err)
		require.Len(t, patches, 1)

		p := patches[0]
		assert.Equal(t, stagehand.FileDeleted, p.Operation)
		assert.Equal(t, "gone.txt", p.OldPath)
		assert.Equal(t, fs.FileMode(0o100644), p.OldMode)
		assert.Equal(t, "gone.txt", p.Path())
	})

	t.Run("renamed file", func(t *testing.T) {
		t.Parallel()
		diff := `diff --git a/old_name.go b/new_name.go
similarity index 100%
rename from old_name.go
rename to new_name.go
`
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		require.NoError(t, err)
		require.Len(t, patches, 1)

		p := patches[0]
		assert.Equal(t, stagehand.FileRenamed, p.Operation)
		assert.Equal(t, "old_name.go", p.OldPath)
		assert.Equal(t, "new_name.go", p.NewPath)
		assert.Empty(t, p.Hunks)
	})

	t.Run("binary file", func(t *testing.T) {
		t.Parallel()
		diff := `diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		require.NoError(t, err)
		require.Len(t, patches, 1)

		assert.True(t, patches[0].IsBinary)
		assert.Empty(t, patches[0].Hunks)
	})

	t.Run("missing trailing newline", func(t *testing.T) {
		t.Parallel()
		diff := `diff --git a/end.txt b/end.txt
index 1111111..2222222 100644
--- a/end.txt
+++ b/end.txt
@@ -1,1 +1,1 @@
-old line
\ No newline at end of file
+new line
\ No newline at end of file
`
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		require.NoError(t, err)
		require.Len(t, patches, 1)

		lines := patches[0].Hunks[0].Lines
		require.Len(t, lines, 2)
		assert.Equal(t, "old line", lines[0].Content)
		assert.True(t, lines[0].NoNewline)
		assert.Equal(t, "new line", lines[1].Content)
		assert.True(t, lines[1].NoNewline)
	})

	t.Run("multiple files keep input order", func(t *testing.T) {
		t.Parallel()
		diff := modifiedDiff + `diff --git a/README.md b/README.md
index aaaaaaa..bbbbbbb 100644
--- a/README.md
+++ b/README.md
@@ -1,1 +1,2 @@
 # stagehand
+An interactive staging client.
`
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		require.NoError(t, err)
		require.Len(t, patches, 2)
		assert.Equal(t, "internal/server.go", patches[0].Path())
		assert.Equal(t, "README.md", patches[1].Path())
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		patches, err := gitdiff.NewParser().Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, patches)
	})

	t.Run("truncated hunk", func(t *testing.T) {
		t.Parallel()
		diff := `diff --git a/f b/f
--- a/f
+++ b/f
@@ -1,2 +1,2 @@
 context
`
		_, err := gitdiff.NewParser().Parse(strings.NewReader(diff))
		assert.Error(t, err)
	})
}

// applyToLines applies the hunks of p to a copy of lines, failing the test
// when a context or deleted line does not match. Line content excludes
// trailing newlines, matching stagehand.Line.Content.
func applyToLines(t *testing.T, lines []string, p *stagehand.Patch) []string {
	t.Helper()

	var out []string
	cursor := 0
	for _, h := range p.Hunks {
		start := h.OldStart - 1
		if h.OldCount == 0 {
			// A pure insertion anchors after the declared old line.
			start = h.OldStart
		}
		require.GreaterOrEqual(t, start, cursor)
		require.LessOrEqual(t, start, len(lines))
		out = append(out, lines[cursor:start]...)
		cursor = start

		for _, l := range h.Lines {
			switch l.Type {
			case stagehand.LineContext:
				require.Less(t, cursor, len(lines), "context beyond end of file")
				require.Equal(t, l.Content, lines[cursor], "context mismatch")
				out = append(out, lines[cursor])
				cursor++
			case stagehand.LineDeleted:
				require.Less(t, cursor, len(lines), "deletion beyond end of file")
				require.Equal(t, l.Content, lines[cursor], "deletion mismatch")
				cursor++
			case stagehand.LineAdded:
				out = append(out, l.Content)
			}
		}
	}
	out = append(out, lines[cursor:]...)
	return out
}

// TestStageUnstageRoundTrip stages a line selection, then unstages the
// resulting staged patch in full, and verifies the target is restored
// bit-for-bit. Extraction, formatting, parsing and application all
// participate.
func TestStageUnstageRoundTrip(t *testing.T) {
	t.Parallel()

	// Working tree change against an index holding ["m", "b"]: adds a,
	// removes b, adds c.
	patch := &stagehand.Patch{
		OldPath: "f.txt",
		NewPath: "f.txt",
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
	index := []string{"m", "b"}

	tests := []struct {
		name       string
		start, end int // record range to stage
	}{
		{name: "single deletion", start: 3, end: 3},
		{name: "addition and deletion", start: 2, end: 3},
		{name: "every change", start: 1, end: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := stagehand.NewDocument(patch)

			stageBytes, err := stagehand.Extract(doc, tt.start, tt.end, false)
			require.NoError(t, err)
			parsed, err := gitdiff.NewParser().Parse(bytes.NewReader(stageBytes))
			require.NoError(t, err)
			require.Len(t, parsed, 1)

			staged := applyToLines(t, index, parsed[0])

			// Unstage everything that was just staged. The staged patch is
			// what the index now shows against its previous state.
			stagedDoc := stagehand.NewDocument(parsed[0])
			unstageBytes, err := stagehand.Extract(stagedDoc, 0, len(stagedDoc.Records)-1, true)
			require.NoError(t, err)
			reparsed, err := gitdiff.NewParser().Parse(bytes.NewReader(unstageBytes))
			require.NoError(t, err)
			require.Len(t, reparsed, 1)

			restored := applyToLines(t, staged, reparsed[0])
			assert.Equal(t, index, restored)
		})
	}
}
