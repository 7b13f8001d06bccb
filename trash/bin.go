// Package trash implements the backup area discard operations write to
// before destroying working-tree content. Each deposit is a patch file
// under one directory, recorded in a JSON-lines manifest, with old entries
// pruned beyond a file cap.
package trash

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fwojciec/stagehand"
)

// ManifestName is the manifest file kept next to the deposited patches.
const ManifestName = "manifest.jsonl"

// DefaultMaxFiles is the prune cap used when NewBin gets no positive cap.
const DefaultMaxFiles = 250

// manifest lines can carry large stems; allow well beyond the default
// bufio.Scanner token size.
const maxManifestLine = 10 * 1024 * 1024

// Entry is one manifest record describing a stored backup.
type Entry struct {
	File    string    `json:"file"` // file name inside the bin directory
	Stem    string    `json:"stem"` // caller-supplied label
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`
}

// Bin stores discarded content under one directory. It implements
// stagehand.Trash.
type Bin struct {
	dir      string
	maxFiles int

	mu sync.Mutex
}

var _ stagehand.Trash = (*Bin)(nil)

// NewBin opens (creating if needed) the bin directory. A non-positive
// maxFiles selects DefaultMaxFiles.
func NewBin(dir string, maxFiles int) (*Bin, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trash directory: %w", err)
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Bin{dir: dir, maxFiles: maxFiles}, nil
}

// Dir returns the bin directory.
func (b *Bin) Dir() string {
	return b.dir
}

// Deposit writes content to a fresh file named after the current time and
// stem, appends a manifest record, and prunes entries beyond the cap. It
// returns the path of the stored file.
func (b *Bin) Deposit(stem string, content []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	name := fmt.Sprintf("%s-%s-%s.patch",
		now.Format("20060102-150405"), uuid.NewString()[:8], sanitizeStem(stem))
	path := filepath.Join(b.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	entry := Entry{File: name, Stem: stem, SavedAt: now, Size: len(content)}
	if err := b.appendEntry(entry); err != nil {
		return "", err
	}
	if err := b.prune(); err != nil {
		return "", err
	}
	return path, nil
}

// Entries returns the manifest records in deposit order, oldest first. A
// missing manifest is an empty bin, not an error.
func (b *Bin) Entries() ([]Entry, error) {
	f, err := os.Open(filepath.Join(b.dir, ManifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxManifestLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return entries, nil
}

func (b *Bin) appendEntry(entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(b.dir, ManifestName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append manifest: %w", err)
	}
	return f.Close()
}

// prune removes the oldest backups beyond the cap and rewrites the
// manifest to match.
func (b *Bin) prune() error {
	entries, err := b.Entries()
	if err != nil {
		return err
	}
	if len(entries) <= b.maxFiles {
		return nil
	}

	victims := entries[:len(entries)-b.maxFiles]
	survivors := entries[len(entries)-b.maxFiles:]
	for _, entry := range victims {
		if err := os.Remove(filepath.Join(b.dir, entry.File)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune backup: %w", err)
		}
	}

	tmp, err := os.CreateTemp(b.dir, ManifestName+".*")
	if err != nil {
		return err
	}
	for _, entry := range survivors {
		raw, err := json.Marshal(entry)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := tmp.Write(append(raw, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("rewrite manifest: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(b.dir, ManifestName))
}

// sanitizeStem keeps file names portable across filesystems.
func sanitizeStem(stem string) string {
	var sb strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	if sb.Len() == 0 {
		return "patch"
	}
	return sb.String()
}
