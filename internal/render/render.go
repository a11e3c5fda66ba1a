// Package render turns a daily work-summary form into a fixed-layout PDF
// report. Rendering depends only on the form, the render time, and the
// optional logo file.
package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// ContentType is the MIME type of rendered artifacts.
const ContentType = "application/pdf"

const (
	fontFamily   = "Helvetica"
	margin       = 50.0
	footerSpace  = 70.0
	bulletIndent = 20.0
)

type rgb struct{ r, g, b int }

var (
	colorHeader  = rgb{0x44, 0x44, 0x44}
	colorTitle   = rgb{0x2c, 0x3e, 0x50}
	colorHeading = rgb{0x34, 0x98, 0xdb}
	colorBody    = rgb{0x33, 0x33, 0x33}
	colorFooter  = rgb{0x66, 0x66, 0x66}
)

// Artifact is a rendered report.
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
	Report      *Report
}

// Renderer draws reports. The zero value renders compressed PDFs in the
// render time's own location, without a logo.
type Renderer struct {
	LogoPath string         // drawn top-left when readable, skipped otherwise
	Compress bool           // deflate page content streams
	Location *time.Location // time zone of the footer timestamp
}

// Render validates and normalizes form, then draws it at time now.
func (r *Renderer) Render(form Form, now time.Time) (*Artifact, error) {
	f, err := form.Normalize()
	if err != nil {
		return nil, err
	}
	if r.Location != nil {
		now = now.In(r.Location)
	}

	rep := BuildReport(f, now)
	var buf bytes.Buffer
	if err := r.write(&buf, rep, now); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return &Artifact{
		Data:        buf.Bytes(),
		Filename:    Filename(f.InternName, now),
		ContentType: ContentType,
		Report:      rep,
	}, nil
}

func (r *Renderer) write(w io.Writer, rep *Report, now time.Time) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, footerSpace)
	pdf.SetCompression(r.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(rep.Title, true)
	pdf.SetCreator(SystemName, true)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	setColor := func(c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

	pdf.SetFooterFunc(func() {
		pdf.SetY(-footerSpace + 10)
		pdf.SetFont(fontFamily, "", 10)
		setColor(colorFooter)
		pdf.CellFormat(0, 12, tr(rep.GeneratedOn), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 12, tr(rep.Copyright), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 12, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	r.drawLogo(pdf)

	pdf.SetFont(fontFamily, "", 20)
	setColor(colorHeader)
	pdf.CellFormat(0, 24, tr(rep.Company), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "BU", 16)
	setColor(colorTitle)
	pdf.CellFormat(0, 20, tr(rep.Title), "", 1, "C", false, 0, "")
	pdf.Ln(24)

	for _, s := range rep.Sections {
		pdf.SetFont(fontFamily, "BU", 14)
		setColor(colorHeading)
		pdf.CellFormat(0, 18, tr(s.Heading), "", 1, "L", false, 0, "")
		pdf.Ln(4)

		pdf.SetFont(fontFamily, "", 11)
		setColor(colorBody)
		switch s.Kind {
		case KindFields:
			for _, line := range s.Lines {
				pdf.MultiCell(0, 15, tr(line), "", "L", false)
			}
		case KindParagraph:
			for _, line := range s.Lines {
				pdf.MultiCell(0, 16, tr(line), "", "J", false)
			}
		case KindBullets:
			for _, line := range s.Lines {
				pdf.SetX(margin + bulletIndent)
				pdf.CellFormat(12, 15, tr("•"), "", 0, "L", false, 0, "")
				pdf.MultiCell(0, 15, tr(line), "", "L", false)
			}
		}
		pdf.Ln(12)
	}

	return pdf.Output(w)
}

// drawLogo places the logo in the top-left corner. A missing or unreadable
// image is skipped.
func (r *Renderer) drawLogo(pdf *fpdf.Fpdf) {
	if r.LogoPath == "" {
		return
	}
	data, err := os.ReadFile(r.LogoPath)
	if err != nil {
		return
	}
	imageType := strings.ToUpper(strings.TrimPrefix(filepath.Ext(r.LogoPath), "."))
	if imageType == "JPEG" {
		imageType = "JPG"
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(data))
	if !pdf.Ok() {
		pdf.ClearError()
		return
	}
	pdf.ImageOptions("logo", margin, 45, 50, 0, false, opts, 0, "")
	if !pdf.Ok() {
		pdf.ClearError()
	}
}
