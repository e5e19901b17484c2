package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SpillURIPrefix is the scheme+authority every spill-file URI begins with.
const SpillURIPrefix = "mcp://tmp/"

// SpillHandle names the on-disk and logical locations of a single
// execution's captured stdout/stderr, once it has spilled to disk.
type SpillHandle struct {
	StdoutURI  string
	StdoutPath string
	StderrURI  string
	StderrPath string
}

// SpillStore manages the $HOME/.shemcp/tmp directory that spill files live
// under.
type SpillStore struct {
	dir string
}

// NewSpillStore returns a SpillStore rooted at dir. The caller is
// responsible for having created dir (typically $HOME/.shemcp/tmp).
func NewSpillStore(dir string) *SpillStore {
	return &SpillStore{dir: dir}
}

// Dir returns the backing directory.
func (s *SpillStore) Dir() string {
	return s.dir
}

// NewExecutionPaths generates a fresh, globally unique pair of stdout/stderr
// spill paths for one execution, without creating the files.
func (s *SpillStore) NewExecutionPaths() (stdoutPath, stderrPath string) {
	id := uuid.New().String()

	return filepath.Join(s.dir, fmt.Sprintf("exec-%s.out", id)),
		filepath.Join(s.dir, fmt.Sprintf("exec-%s.err", id))
}

// URI converts an absolute spill path under the store's directory into its
// mcp://tmp/ URI form.
func (s *SpillStore) URI(path string) string {
	return SpillURIPrefix + filepath.Base(path)
}

// PathForURI resolves a mcp://tmp/ URI back to an absolute path, rejecting
// anything that isn't a bare basename under the store directory (no path
// traversal).
func (s *SpillStore) PathForURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, SpillURIPrefix) {
		return "", fmt.Errorf("invalid uri: must start with %q", SpillURIPrefix)
	}

	name := strings.TrimPrefix(uri, SpillURIPrefix)
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid uri: %q", uri)
	}

	return filepath.Join(s.dir, name), nil
}

// ReadRange performs a streaming read of [start, end) from the file at
// path, using the file's size (via stat) to cap end. end <= start returns
// an empty slice. It also returns the file's total size.
func ReadRange(path string, start, end int64) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}

	total := info.Size()

	if end > total {
		end = total
	}

	if end <= start {
		return []byte{}, total, nil
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, total, err
	}

	buf := make([]byte, end-start)
	if _, err := io.ReadFull(f, buf); err != nil && err != io.ErrUnexpectedEOF {
		return nil, total, err
	}

	return buf, total, nil
}

// Remove deletes the spill file at path if it exists. A missing file is not
// an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
