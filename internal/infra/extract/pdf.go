package extract

import (
	"bytes"
	"io"
	"strings"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// ledongthucParser walks the document page by page. A panic inside the
// parser (malformed xref tables do that) is converted to an error so the
// fallback strategy gets its turn.
type ledongthucParser struct{}

func (p *ledongthucParser) Parse(data []byte, maxPages int) (out Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("extract: primary pdf parser panicked: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, eris.Wrap(err, "extract: open pdf")
	}

	total := reader.NumPage()
	pages := total
	if pages > maxPages {
		pages = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			// A single unreadable page doesn't fail the document.
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return Extraction{Text: sb.String(), PageCount: pages}, nil
}

// dslipakParser reads the whole document in one pass. Used when the primary
// strategy errors out or yields only whitespace.
type dslipakParser struct{}

func (p *dslipakParser) Parse(data []byte, maxPages int) (out Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("extract: fallback pdf parser panicked: %v", r)
		}
	}()

	reader, err := dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, eris.Wrap(err, "extract: open pdf (fallback)")
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return Extraction{}, eris.Wrap(err, "extract: read pdf text (fallback)")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Extraction{}, eris.Wrap(err, "extract: copy pdf text (fallback)")
	}

	pages := reader.NumPage()
	if pages > maxPages {
		pages = maxPages
	}
	return Extraction{Text: buf.String(), PageCount: pages}, nil
}
