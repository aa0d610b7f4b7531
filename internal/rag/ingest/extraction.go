package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/ExamAPI/internal/domain/commonModels"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

// Page is the text of one document page. Non-PDF documents have a single page.
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

func getDocType(docPath string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return commonModels.PDF
	case ".txt":
		return commonModels.TXT
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	default:
		return commonModels.ERR
	}
}

// Supported reports whether the pipeline can read the file.
func Supported(path string) bool {
	return getDocType(path) != commonModels.ERR
}

func extractPages(ctx context.Context, path string, pageTimeout time.Duration, logger *logger_i.Logger) ([]Page, error) {
	switch getDocType(path) {
	case commonModels.PDF:
		return extractPDF(ctx, path, pageTimeout, logger)
	case commonModels.TXT:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Page{{Number: 1, Content: string(raw)}}, nil
	case commonModels.DOCX:
		return extractDocument(path, logger)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func extractPDF(ctx context.Context, path string, pageTimeout time.Duration, logger *logger_i.Logger) ([]Page, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("failed opening of pdf file", "path", path)
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []Page
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			logger.Debug("extractPDF", "null page", i)
			continue
		}

		content, err := protectExtract(page, pageTimeout)
		if err != nil {
			// one bad page does not lose the document
			logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, Page{Number: i, Content: content})
	}
	return pages, nil
}

// extractDocument reads .odt, .docx and .rtf files
func extractDocument(path string, logger *logger_i.Logger) ([]Page, error) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc", "path", path)
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(path), err)
	}

	//page boundaries are not tracked for word processor formats
	return []Page{{Number: 1, Content: text}}, nil
}

// protectExtract bounds a single page; the pdf reader can spin on malformed content streams.
func protectExtract(page pdf.Page, timeout time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(timeout):
		return "", errors.New("timeout")
	}
}
