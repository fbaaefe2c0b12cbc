package studytool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

var filesPhrases = []string{"read file", "open file", "show file", "view file", "list files in", "list folder", "read", "open", "view", "list"}

// Files reads a text file, or lists a folder, inside the allowed roots.
type Files struct {
	Policy  *tool.Policy
	BaseDir string
	Limits  tool.Limits
}

func NewFiles(policy *tool.Policy, baseDir string, limits tool.Limits) (*Files, error) {
	if policy == nil {
		return nil, fmt.Errorf("files: no allowed roots configured")
	}
	if limits.MaxLines <= 0 {
		limits.MaxLines = 2000
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = 51200
	}
	return &Files{Policy: policy, BaseDir: baseDir, Limits: limits}, nil
}

func (f *Files) Name() string { return NameFiles }

func (f *Files) Description() string {
	return "Read a text file or list a folder of study notes."
}

func (f *Files) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "path", Type: tool.TypeString, Required: true},
		{Name: "offset", Type: tool.TypeNumber, Integer: true, Description: "lines to skip"},
		{Name: "limit", Type: tool.TypeNumber, Integer: true, Description: "maximum lines"},
	}}
}

func (f *Files) Match(utterance string) (tool.Params, bool) {
	path, ok := tool.AfterPhrase(utterance, filesPhrases...)
	if !ok || !looksLikePath(path) {
		return nil, false
	}
	return tool.Params{"path": path}, true
}

func (f *Files) Execute(ctx context.Context, params tool.Params) (string, error) {
	path := params.String("path")
	offset := params.Int("offset", 0)
	if offset < 0 {
		return "", fmt.Errorf("offset must be >= 0")
	}
	limit := params.Int("limit", f.Limits.MaxLines)
	if limit <= 0 {
		return "", fmt.Errorf("limit must be > 0")
	}

	resolved, err := f.Policy.Resolve(path, f.BaseDir)
	if err != nil {
		return "", err
	}
	fh, err := os.Open(resolved)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	info, err := fh.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return f.list(resolved, offset, limit)
	}

	var lines []string
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 0; sc.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if n < offset {
			continue
		}
		if len(lines) == limit {
			break
		}
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text, truncLines, truncBytes := tool.ApplyOutputLimits(strings.Join(lines, "\n"), f.Limits)
	header := fmt.Sprintf("File: %s (%s, %d bytes)", filepath.Base(resolved), extOf(resolved), info.Size())
	out := header + "\n\n" + text
	if truncLines || truncBytes {
		out += "\n\n[output truncated]"
	}
	return out, nil
}

// list renders one entry per line, folders marked with a trailing slash.
func (f *Files) list(dir string, offset, limit int) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	total := len(names)
	names = names[min(offset, total):]
	names = names[:min(limit, len(names))]

	text, truncLines, truncBytes := tool.ApplyOutputLimits(strings.Join(names, "\n"), f.Limits)
	out := fmt.Sprintf("Folder: %s (%d entries)", filepath.Base(dir), total)
	if text != "" {
		out += "\n\n" + text
	}
	if truncLines || truncBytes {
		out += "\n\n[output truncated]"
	}
	return out, nil
}

func extOf(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return "no extension"
}
