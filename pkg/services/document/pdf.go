package document

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"invoice-desk/pkg/services/ocr"
)

func (e *Extractor) pdfText(ctx context.Context, data []byte) (string, error) {
	pages, scanned, err := readPages(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		if verr := e.validate(data); verr != nil {
			return "", fmt.Errorf("invalid PDF: %w", verr)
		}
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	if len(scanned) > 0 {
		if e.recognizer == nil {
			if joinPages(pages) == "" {
				return "", ErrOCRUnavailable
			}
			log.Printf("[PDF] %d page(s) without text skipped, OCR not configured", len(scanned))
		} else {
			ocrText, err := e.ocrPages(ctx, data, scanned)
			if err != nil {
				if joinPages(pages) == "" {
					return "", err
				}
				log.Printf("[OCR] scanned pages skipped: %v", err)
			}
			for nr, text := range ocrText {
				if nr > 0 && nr < len(pages) {
					pages[nr] = text
				}
			}
		}
	}

	return joinPages(pages), nil
}

// readPages returns the embedded text of every page, indexed by page number,
// and the numbers of the pages that carry no text. The pdf package panics on
// broken cross reference tables, which is reported as an error.
func readPages(ctx context.Context, data []byte) (pages, scanned []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, scanned = nil, nil
			err = fmt.Errorf("malformed PDF structure: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}

	n := r.NumPage()
	pages = make([]string, n+1)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			log.Printf("[PDF] page %d: %v", i, err)
		}
		if strings.TrimSpace(text) == "" {
			scanned = append(scanned, strconv.Itoa(i))
			continue
		}
		pages[i] = text
	}
	return pages, scanned, nil
}

func (e *Extractor) validate(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return api.Validate(bytes.NewReader(data), e.conf)
}

func joinPages(pages []string) string {
	var parts []string
	for _, p := range pages {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// pageText reads the embedded text of p. Malformed content streams make the
// pdf package panic, so those pages are reported as errors instead.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable page content: %v", r)
		}
	}()
	return glyphLines(p.Content().Text), nil
}

// glyphLines groups glyphs sharing a baseline into lines, top of page first
func glyphLines(glyphs []pdf.Text) string {
	var kept []pdf.Text
	for _, g := range glyphs {
		if g.S != "" {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return ""
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Y > kept[j].Y
	})

	var lines [][]pdf.Text
	current := []pdf.Text{kept[0]}
	baseline := kept[0].Y
	for _, g := range kept[1:] {
		if math.Abs(g.Y-baseline) > lineTolerance(g) {
			lines = append(lines, current)
			current = nil
			baseline = g.Y
		}
		current = append(current, g)
	}
	lines = append(lines, current)

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := strings.TrimSpace(renderLine(line)); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}

func lineTolerance(g pdf.Text) float64 {
	return math.Max(2, g.FontSize*0.3)
}

func renderLine(line []pdf.Text) string {
	sort.SliceStable(line, func(i, j int) bool {
		return line[i].X < line[j].X
	})

	var b strings.Builder
	end := math.Inf(-1)
	for _, g := range line {
		if b.Len() > 0 && g.X-end > g.FontSize*0.25 && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(g.S, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(g.S)

		advance := g.W
		if advance <= 0 {
			// no width metrics in the font, estimate half an em per rune
			advance = g.FontSize * 0.5 * float64(utf8.RuneCountInString(g.S))
		}
		end = math.Max(end, g.X+advance)
	}
	return b.String()
}

// ocrPages extracts the images on the given pages and runs them through the
// recognizer. The result is keyed by page number.
func (e *Extractor) ocrPages(ctx context.Context, data []byte, pageNrs []string) (_ map[int]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read scanned pages: %v", r)
		}
	}()
	found := make(map[int][]string)

	err = api.ExtractImages(bytes.NewReader(data), pageNrs, func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		decoded, err := imaging.Decode(img.Reader)
		if err != nil {
			log.Printf("[OCR] page %d image %s: %v", img.PageNr, img.Name, err)
			return nil
		}
		lines, err := e.recognizer.Recognize(ctx, decoded)
		if err != nil {
			return err
		}
		if text := ocr.JoinLines(lines); text != "" {
			found[img.PageNr] = append(found[img.PageNr], text)
		}
		return nil
	}, e.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read scanned pages: %w", err)
	}

	out := make(map[int]string, len(found))
	for nr, parts := range found {
		out[nr] = strings.Join(parts, "\n")
	}
	return out, nil
}
