package pdftools

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"
	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// NativeText is the embedded text layer of a PDF plus its page count.
type NativeText struct {
	Text  string
	Pages int
	// Via is "pdf" for the pure-Go reader or "docconv" for the poppler fallback.
	Via string
}

func IsPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// Tools groups the PDF operations the acquisition stage needs so tests can
// replace them with fakes.
type Tools interface {
	ExtractText(data []byte) (NativeText, error)
	PageCount(data []byte) (int, error)
	TrimPages(data []byte, maxPages int) ([]byte, error)
}

type Default struct{}

var _ Tools = Default{}

// ExtractText reads the text layer page by page. When the pure-Go reader
// cannot parse the file it falls back to docconv.
func (Default) ExtractText(data []byte) (NativeText, error) {
	if !IsPDF(data) {
		return NativeText{}, fmt.Errorf("pdf: missing %%PDF header")
	}
	out, err := extractWithReader(data)
	if err == nil {
		return out, nil
	}
	body, dErr := extractWithDocconv(data)
	if dErr != nil {
		return NativeText{}, fmt.Errorf("pdf text: %v; docconv: %w", err, dErr)
	}
	pages, _ := Default{}.PageCount(data)
	return NativeText{Text: body, Pages: pages, Via: "docconv"}, nil
}

func extractWithReader(data []byte) (out NativeText, err error) {
	// ledongthuc/pdf panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return NativeText{}, fmt.Errorf("pdf reader: %w", err)
	}
	n := r.NumPage()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, pErr := p.GetPlainText(nil)
		if pErr != nil {
			continue
		}
		b.WriteString(txt)
		b.WriteString("\n\n")
	}
	return NativeText{Text: b.String(), Pages: n, Via: "pdf"}, nil
}

func extractWithDocconv(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

func (Default) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), conf())
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// TrimPages keeps the first maxPages pages. Documents already within the
// budget are returned unchanged.
func (d Default) TrimPages(data []byte, maxPages int) ([]byte, error) {
	if maxPages <= 0 {
		return data, nil
	}
	n, err := d.PageCount(data)
	if err != nil {
		return nil, err
	}
	if n <= maxPages {
		return data, nil
	}
	var buf bytes.Buffer
	sel := []string{fmt.Sprintf("1-%d", maxPages)}
	if err := api.Trim(bytes.NewReader(data), io.Writer(&buf), sel, conf()); err != nil {
		return nil, fmt.Errorf("pdf trim: %w", err)
	}
	return buf.Bytes(), nil
}

func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}
