// Package pdf is the composition engine: it merges original pages, signature
// overlays, a signatures summary, and the audit report into the final signed
// artifact.
package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"esign/internal/domain"
	"esign/internal/service"

	"github.com/jung-kurt/gofpdf"
	contribgofpdi "github.com/jung-kurt/gofpdf/contrib/gofpdi"
	realgofpdi "github.com/phpdave11/gofpdi"
)

const (
	pageW = 595.28 // A4 portrait, points
	pageH = 841.89

	marginTop    = 72.0
	marginBottom = 64.0
	marginLeft   = 54.0
	marginRight  = 54.0

	lineAdvance     = 16.0
	bodyFontSize    = 11.0
	headingFontSize = 13.0

	provenanceCaption = "Electronically signed via esign"
)

var headingPrefixes = []string{
	"ARTICLE", "SECTION", "CLAUSE", "SCHEDULE", "ANNEX", "EXHIBIT", "WHEREAS",
}

type Engine struct {
	log *slog.Logger
}

func NewEngine(log *slog.Logger) *Engine {
	return &Engine{log: log.With("component", "pdf_engine")}
}

type stamp struct {
	signer domain.Signer
	sig    domain.Signature
}

// Compose builds the final artifact. Individual bad assets (corrupt images,
// unreadable originals) are logged and skipped; only the total absence of
// usable content is fatal.
func (e *Engine) Compose(ctx context.Context, in service.ComposeInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in.Original) == 0 && strings.TrimSpace(in.Document.Content) == "" {
		return nil, domain.Integrity("document %s has no original file and no content", in.Document.ID)
	}

	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)

	stamps := stampsByPage(in)
	placed := map[int]bool{}

	pages := 0
	if len(in.Original) > 0 {
		pages = e.copyOriginal(doc, in.Original, stamps, placed)
		if pages == 0 && strings.TrimSpace(in.Document.Content) == "" {
			return nil, domain.Integrity("document %s original is unreadable and no content exists", in.Document.ID)
		}
	}
	if pages == 0 {
		pages = e.renderContent(doc, in.Document.Content, stamps, placed)
	}

	for page, list := range stamps {
		if !placed[page] {
			for _, st := range list {
				e.log.Warn("signature stamp page out of range, kept on summary only",
					"document_id", in.Document.ID, "signer_id", st.signer.ID, "page", page, "pages", pages)
			}
		}
	}

	e.summaryPage(doc, in)
	e.auditPage(doc, in)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, domain.Integrity("serialize composed document: %v", err)
	}
	return buf.Bytes(), nil
}

func stampsByPage(in service.ComposeInput) map[int][]stamp {
	signers := make(map[string]domain.Signer, len(in.Signers))
	for _, s := range in.Signers {
		signers[s.ID.String()] = s
	}
	out := map[int][]stamp{}
	for _, sig := range in.Signatures {
		if !sig.Position.Present() {
			continue
		}
		out[*sig.Position.Page] = append(out[*sig.Position.Page], stamp{
			signer: signers[sig.SignerID.String()],
			sig:    sig,
		})
	}
	return out
}

// copyOriginal imports every page of the original file verbatim, stamping
// signatures as each page is emitted. Returns 0 when the original cannot be
// parsed; gofpdi reports malformed input by panicking, hence the recover.
func (e *Engine) copyOriginal(doc *gofpdf.Fpdf, original []byte, stamps map[int][]stamp, placed map[int]bool) (pages int) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("original file unreadable, skipping", "error", fmt.Sprint(r))
			pages = 0
		}
	}()

	tmp, err := os.CreateTemp("", "esign-original-*.pdf")
	if err != nil {
		e.log.Error("original temp file", "error", err)
		return 0
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(original); err != nil {
		tmp.Close()
		e.log.Error("original temp write", "error", err)
		return 0
	}
	tmp.Close()

	counter := realgofpdi.NewImporter()
	counter.SetSourceFile(tmp.Name())
	total := counter.GetNumPages()
	if total == 0 {
		e.log.Error("original file has no pages")
		return 0
	}

	for i := 1; i <= total; i++ {
		tpl := contribgofpdi.ImportPage(doc, tmp.Name(), i, "/MediaBox")
		w, h := pageW, pageH
		if sizes := contribgofpdi.GetPageSizes(); sizes != nil {
			if box, ok := sizes[i]["/MediaBox"]; ok && box["w"] > 0 && box["h"] > 0 {
				w, h = box["w"], box["h"]
			}
		}
		orientation := "P"
		if w > h {
			orientation = "L"
		}
		doc.AddPageFormat(orientation, gofpdf.SizeType{Wd: w, Ht: h})
		contribgofpdi.UseImportedTemplate(doc, tpl, 0, 0, w, h)
		e.stampPage(doc, stamps[i])
		placed[i] = true
	}
	return total
}

// renderContent lays the textual content out on generated pages: fixed page
// size, fixed top margin, fixed line advance, new page on overflow. Lines
// matching heading keywords get a heavier weight; that is presentation only.
func (e *Engine) renderContent(doc *gofpdf.Fpdf, content string, stamps map[int][]stamp, placed map[int]bool) int {
	usableW := pageW - marginLeft - marginRight
	page := 0
	y := 0.0

	newPage := func() {
		if page > 0 {
			e.stampPage(doc, stamps[page])
			placed[page] = true
		}
		doc.AddPage()
		page++
		y = marginTop
	}
	newPage()

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, " \t")
		if isHeading(line) {
			doc.SetFont("Helvetica", "B", headingFontSize)
		} else {
			doc.SetFont("Helvetica", "", bodyFontSize)
		}
		segments := []string{""}
		if strings.TrimSpace(line) != "" {
			segments = doc.SplitText(line, usableW)
		}
		for _, seg := range segments {
			if y > pageH-marginBottom {
				newPage()
			}
			if seg != "" {
				doc.Text(marginLeft, y, seg)
			}
			y += lineAdvance
		}
	}

	e.stampPage(doc, stamps[page])
	placed[page] = true
	return page
}

// stampPage draws the signature boxes destined for the current page. Stamp
// rectangles are stored in capture space (top-left origin); gofpdf's drawing
// API is also top-left-origin, so x/y are used directly, while the PDF
// user-space position recorded on the summary page comes from CaptureToPDF.
func (e *Engine) stampPage(doc *gofpdf.Fpdf, stamps []stamp) {
	for _, st := range stamps {
		pos := st.sig.Position
		x, y, w, h := *pos.X, *pos.Y, *pos.W, *pos.H

		doc.SetDrawColor(110, 110, 110)
		doc.SetLineWidth(0.7)
		doc.Rect(x, y, w, h, "D")

		if img, imgType, ok := decodeImagePayload(st.sig); ok {
			name := "sig-" + st.sig.ID.String()
			opts := gofpdf.ImageOptions{ImageType: imgType}
			doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
			if doc.Err() {
				e.log.Warn("signature image rejected, skipping",
					"signature_id", st.sig.ID, "error", doc.Error())
				doc.ClearError()
			} else {
				doc.ImageOptions(name, x+2, y+2, w-4, h-4, false, opts, 0, "")
			}
		} else if st.sig.Type == domain.SignatureTyped {
			doc.SetFont("Helvetica", "I", 14)
			doc.Text(x+6, y+h/2+5, st.sig.Payload)
		} else {
			e.log.Warn("signature asset unusable, box left empty",
				"signature_id", st.sig.ID, "type", st.sig.Type)
		}

		doc.SetFont("Helvetica", "", 7)
		doc.SetTextColor(70, 70, 70)
		doc.Text(x, y+h+9, fmt.Sprintf("%s, signed %s",
			st.signer.Name, st.sig.SignedAt.UTC().Format(time.RFC3339)))
		doc.Text(x, y+h+18, provenanceCaption)
		doc.SetTextColor(0, 0, 0)
	}
}

// summaryPage is the only durable record for signatures without placement
// coordinates: every signer appears here regardless.
func (e *Engine) summaryPage(doc *gofpdf.Fpdf, in service.ComposeInput) {
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.Text(marginLeft, marginTop, "Signatures")

	sigBySigner := make(map[string]domain.Signature, len(in.Signatures))
	for _, s := range in.Signatures {
		sigBySigner[s.SignerID.String()] = s
	}

	signers := append([]domain.Signer(nil), in.Signers...)
	sort.SliceStable(signers, func(i, j int) bool {
		if signers[i].SignOrder != signers[j].SignOrder {
			return signers[i].SignOrder < signers[j].SignOrder
		}
		return signers[i].Name < signers[j].Name
	})

	y := marginTop + 2*lineAdvance
	for _, s := range signers {
		if y > pageH-marginBottom-2*lineAdvance {
			doc.AddPage()
			y = marginTop
		}
		doc.SetFont("Helvetica", "B", bodyFontSize)
		doc.Text(marginLeft, y, fmt.Sprintf("%s <%s> (%s)", s.Name, s.Email, s.Role))
		y += lineAdvance

		doc.SetFont("Helvetica", "", bodyFontSize)
		if sig, ok := sigBySigner[s.ID.String()]; ok {
			line := fmt.Sprintf("Signed %s, type %s", sig.SignedAt.UTC().Format(time.RFC3339), sig.Type)
			if sig.Position.Present() {
				pdfY := CaptureToPDF(pageH, *sig.Position.Y, *sig.Position.H)
				line += fmt.Sprintf(", page %d at x=%.1f y=%.1f (pdf space)", *sig.Position.Page, *sig.Position.X, pdfY)
			}
			doc.Text(marginLeft+12, y, line)
		} else {
			doc.Text(marginLeft+12, y, "Not signed")
		}
		y += 1.5 * lineAdvance
	}
}

// auditPage appends the chain-of-custody report. The final hash line stays a
// placeholder: patching bytes after serialization would invalidate the very
// hash being recorded, so the authoritative value lives on the document row.
func (e *Engine) auditPage(doc *gofpdf.Fpdf, in service.ComposeInput) {
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.Text(marginLeft, marginTop, "Audit Report")

	y := marginTop + 2*lineAdvance
	doc.SetFont("Helvetica", "", 9)
	origHash := in.Document.OriginalHash
	if origHash == "" {
		origHash = "(none: template document)"
	}
	doc.Text(marginLeft, y, "Original hash: "+origHash)
	y += lineAdvance
	doc.Text(marginLeft, y, "Final hash: recorded with the stored artifact")
	y += 2 * lineAdvance

	usableW := pageW - marginLeft - marginRight
	for _, entry := range in.Trail {
		line := fmt.Sprintf("%s  %s", entry.CreatedAt.UTC().Format(time.RFC3339), entry.Action)
		if entry.Details != "" {
			line += "  " + entry.Details
		}
		for _, seg := range doc.SplitText(line, usableW) {
			if y > pageH-marginBottom {
				doc.AddPage()
				y = marginTop
			}
			doc.Text(marginLeft, y, seg)
			y += lineAdvance
		}
	}
}

// decodeImagePayload turns a canvas/upload payload into image bytes. Remote
// URLs are not fetched at composition time; those assets fall back to the
// summary page.
func decodeImagePayload(sig domain.Signature) ([]byte, string, bool) {
	if sig.Type == domain.SignatureTyped {
		return nil, "", false
	}
	payload := strings.TrimSpace(sig.Payload)
	if strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://") {
		return nil, "", false
	}
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", false
		}
	}
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return data, "PNG", true
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return data, "JPEG", true
	default:
		return nil, "", false
	}
}

func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 90 {
		return false
	}
	upper := strings.ToUpper(trimmed)
	for _, p := range headingPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

var _ service.Composer = (*Engine)(nil)
