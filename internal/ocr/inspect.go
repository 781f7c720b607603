package ocr

import (
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSize is a page's media size in PDF points.
type PageSize struct {
	Width, Height float64
}

// Metadata is the document information dictionary subset used downstream.
type Metadata struct {
	CreationDate string // raw PDF date, e.g. "D:20250114093000Z"
	Producer     string
	Creator      string
	Title        string
}

// Document is the page inventory of a PDF.
type Document struct {
	Pages    []PageSize
	Metadata Metadata
}

// Inspector reads page geometry and metadata from a PDF.
type Inspector interface {
	Inspect(path string) (Document, error)
}

var disableConfigDir sync.Once

type pdfcpuInspector struct{}

func (pdfcpuInspector) Inspect(path string) (Document, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, nil)
	if err != nil {
		return Document{}, fmt.Errorf("read pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Document{}, fmt.Errorf("validate pdf: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return Document{}, fmt.Errorf("page dimensions: %w", err)
	}
	pages := make([]PageSize, 0, len(dims))
	for _, d := range dims {
		pages = append(pages, PageSize{Width: d.Width, Height: d.Height})
	}

	// Configuration also carries a CreationDate; the document's own lives on the xref table.
	info := ctx.XRefTable
	return Document{
		Pages: pages,
		Metadata: Metadata{
			CreationDate: info.CreationDate,
			Producer:     info.Producer,
			Creator:      info.Creator,
			Title:        info.Title,
		},
	}, nil
}
