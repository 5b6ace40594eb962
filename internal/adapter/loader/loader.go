// Package loader reads knowledge-base documents from a directory tree.
// Markdown and plain-text files are read as-is; PDF text is extracted with
// the ledongthuc/pdf reader.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/devpractices/qa-assistant/internal/domain"
)

// DirectoryLoader loads documents from a file tree.
type DirectoryLoader struct {
	root string
}

// NewDirectoryLoader creates a loader rooted at the given directory.
func NewDirectoryLoader(root string) *DirectoryLoader {
	return &DirectoryLoader{root: root}
}

// Load walks the tree and returns one Document per supported file. Files
// that fail to read are logged and skipped, matching batch-ingestion
// semantics: one bad file does not abort the run.
func (l *DirectoryLoader) Load() ([]domain.Document, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", l.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", l.root)
	}

	var docs []domain.Document
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		var text string
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			text = string(data)
		case ".pdf":
			text, err = extractPDFText(path)
			if err != nil {
				slog.Warn("skipping unreadable pdf", "path", path, "error", err)
				return nil
			}
		default:
			return nil
		}

		if strings.TrimSpace(text) == "" {
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, domain.Document{
			ID:         domain.DocumentID(rel, text),
			SourcePath: rel,
			RawText:    text,
			Title:      extractTitle(text, rel),
			Tags:       pathTags(rel),
			CreatedAt:  time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}

	return docs, nil
}

// extractTitle takes the first markdown H1, falling back to the file name.
func extractTitle(text, sourcePath string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pathTags derives tags from the directory components of the source path.
func pathTags(rel string) []string {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(dir), "/")
}

func extractPDFText(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return buf.String(), nil
}
