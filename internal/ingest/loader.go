package ingest

import (
	"path/filepath"
	"strings"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Loader reads a brokerage report file into trade records.
type Loader interface {
	// Load reads all trades from the file at path.
	Load(path string) ([]model.Trade, error)
}

// ForFile returns the loader matching the file extension: PDF statements
// get the text parser, everything else is treated as an xlsx workbook.
func ForFile(path string) Loader {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return &PDFLoader{}
	}
	return &XLSXLoader{}
}
