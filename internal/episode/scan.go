package episode

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Scan lists candidate episode files in dir, in name order. A candidate is
// a regular file whose name contains "episode"; directories and other
// files are skipped without being opened. The demo index is the numeric
// segment between the first underscore and the first dot, e.g.
// episode_3.npz -> 3; a matching name without a parseable index is corrupt
// input.
func Scan(dir string) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("episode: scan %s: %w", dir, err)
	}

	var refs []Ref
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), "episode") {
			continue
		}
		index, err := parseIndex(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Join(dir, entry.Name()), err)
		}
		refs = append(refs, Ref{
			Path:  filepath.Join(dir, entry.Name()),
			Index: index,
		})
	}
	return refs, nil
}

// ValidateAll opens and parses every candidate before any output is
// produced, so a corrupt capture aborts the run with nothing written.
func ValidateAll(refs []Ref) error {
	for _, ref := range refs {
		if _, err := Load(ref); err != nil {
			return err
		}
	}
	return nil
}

func parseIndex(name string) (int, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, fmt.Errorf("no index segment in %q", name)
	}
	seg := strings.SplitN(parts[1], ".", 2)[0]
	index, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("bad episode index %q in %q", seg, name)
	}
	return index, nil
}
