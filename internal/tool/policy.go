package tool

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// Policy keeps the note-reading tools inside the student's notes folders.
type Policy struct {
	// Roots are absolute, symlink-free notes folders.
	Roots []string
}

func NewPolicy(rootsCSV string) (*Policy, error) {
	roots, err := ParseRoots(rootsCSV)
	if err != nil {
		return nil, err
	}
	return &Policy{Roots: roots}, nil
}

// ParseRoots reads a comma-separated list of notes folders. Each must be
// absolute; repeats are dropped once symlinks are followed.
func ParseRoots(raw string) ([]string, error) {
	var roots []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !filepath.IsAbs(item) {
			return nil, fmt.Errorf("notes folder %q is not an absolute path", item)
		}
		root := filepath.Clean(item)
		if real, err := filepath.EvalSymlinks(root); err == nil {
			root = real
		}
		if !slices.Contains(roots, root) {
			roots = append(roots, root)
		}
	}
	if len(roots) == 0 {
		return nil, errors.New("no notes folder given")
	}
	return roots, nil
}

// Resolve turns a file name from the student into an absolute path. Relative
// names start at baseDir, or at the first notes folder when baseDir is empty.
// Links are followed before the check, so one cannot point out of the notes.
func (p *Policy) Resolve(name, baseDir string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("no file named")
	}
	path := name
	if !filepath.IsAbs(path) {
		if baseDir == "" && len(p.Roots) > 0 {
			baseDir = p.Roots[0]
		}
		path = filepath.Join(baseDir, path)
	}
	path = filepath.Clean(path)

	real, err := followLinks(path)
	if err != nil {
		return "", err
	}
	if !p.inNotes(real) {
		return "", fmt.Errorf("%s is not in your notes folders", name)
	}
	return path, nil
}

func (p *Policy) inNotes(path string) bool {
	for _, root := range p.Roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// followLinks resolves the links in path. A missing tail is kept as written
// under its deepest existing folder, so the reader reports the missing file
// itself.
func followLinks(path string) (string, error) {
	var missing []string
	dir := path
	for {
		real, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{real}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}
