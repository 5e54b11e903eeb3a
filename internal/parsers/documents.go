package parsers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// DocumentSource lists payroll documents in a folder and yields their text
type DocumentSource interface {
	// List returns the document paths in dir in a stable order.
	List(dir string) ([]string, error)
	// ReadText returns the flattened text of one document, pages joined by newlines.
	ReadText(path string) (string, error)
}

// Supported document extensions, compared case-insensitively
const (
	ExtPDF  = ".pdf"
	ExtText = ".txt"
)

// FileDocumentSource reads PDF and plain text documents from the local filesystem
type FileDocumentSource struct {
	logger logger.Logger
}

// NewFileDocumentSource creates a document source backed by the local filesystem
func NewFileDocumentSource() *FileDocumentSource {
	return &FileDocumentSource{
		logger: logger.WithComponent("document_source"),
	}
}

// List returns the supported documents directly inside dir, sorted by file name.
// Subdirectories are not descended into.
func (s *FileDocumentSource) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, dir, err)
		}
		return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedDocument(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)

	s.logger.WithFields(logger.Fields{
		"dir":       dir,
		"documents": len(paths),
	}).Debug("Listed documents")

	return paths, nil
}

// ReadText returns the text of a single document
func (s *FileDocumentSource) ReadText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtPDF:
		return readPDFText(path)
	case ExtText:
		return readPlainText(path)
	default:
		return "", errors.FileError(errors.CodeDocumentUnreadable, path,
			fmt.Errorf("unsupported document type %q", filepath.Ext(path)))
	}
}

// IsSupportedDocument reports whether the file name has a readable document extension
func IsSupportedDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtPDF, ExtText:
		return true
	default:
		return false
	}
}

func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.FileError(errors.CodeDocumentUnreadable, path, err)
	}

	if !utf8.Valid(data) {
		return "", errors.FileError(errors.CodeDocumentUnreadable, path,
			fmt.Errorf("document is not valid UTF-8"))
	}

	return string(data), nil
}

// readPDFText returns the text of every page with one line per text row. The PDF
// reader panics on some malformed files, so the panic is turned into an
// unreadable-document error.
func readPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.FileError(errors.CodeDocumentUnreadable, path, fmt.Errorf("pdf reader panic: %v", r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", errors.FileError(errors.CodeDocumentUnreadable, path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := pageLines(page)
		if err != nil {
			return "", errors.FileError(errors.CodeDocumentUnreadable, path,
				fmt.Errorf("page %d: %w", i, err))
		}

		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// pageLines rebuilds the lines of a page from its text rows: rows top to bottom,
// fragments left to right, a space between fragments at different X positions.
// Rows are keyed on the text matrix, so a page that never sets one comes back as
// a single row and falls back to the content stream order, where only T* breaks
// a line.
func pageLines(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	if len(rows) <= 1 {
		return page.GetPlainText(nil)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var line strings.Builder
		lastX := 0.0
		for _, fragment := range row.Content {
			if fragment.S == "" {
				continue
			}
			if line.Len() > 0 && fragment.X != lastX {
				line.WriteString(" ")
			}
			line.WriteString(fragment.S)
			lastX = fragment.X
		}

		if text := strings.TrimSpace(line.String()); text != "" {
			lines = append(lines, text)
		}
	}

	return strings.Join(lines, "\n"), nil
}
