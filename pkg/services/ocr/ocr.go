package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sort"
	"strconv"
	"strings"

	"invoice-desk/pkg/models"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
)

// maxSide is the largest image edge sent to the OCR service
const maxSide = 3200

// Recognizer reads printed text from an image
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]models.TextLine, error)
}

// Info describes the configured OCR engine for diagnostics
type Info struct {
	Engine     string `json:"engine"`
	Endpoint   string `json:"endpoint"`
	Language   string `json:"language"`
	Configured bool   `json:"configured"`
}

// printedTextReader is the subset of the Azure client used here
type printedTextReader interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Service handles OCR operations
type Service struct {
	client      printedTextReader
	apiEndpoint string
	language    computervision.OcrLanguages
}

// NewService creates a new OCR service
func NewService(endpoint, apiKey, language string) *Service {
	client := computervision.New(endpoint)
	auth := autorest.NewCognitiveServicesAuthorizer(apiKey)
	client.Authorizer = auth

	return &Service{
		client:      &client,
		apiEndpoint: endpoint,
		language:    ocrLanguage(language),
	}
}

func ocrLanguage(lang string) computervision.OcrLanguages {
	if lang == "" {
		return computervision.OcrLanguages(computervision.En)
	}
	return computervision.OcrLanguages(lang)
}

// Info reports the engine settings
func (s *Service) Info() Info {
	return Info{
		Engine:     "azure-computervision",
		Endpoint:   s.apiEndpoint,
		Language:   string(s.language),
		Configured: s.client != nil && s.apiEndpoint != "",
	}
}

// EnhanceImageForOCR enhances the image for better OCR results
func EnhanceImageForOCR(src image.Image) image.Image {
	b := src.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		src = imaging.Fit(src, maxSide, maxSide, imaging.Lanczos)
	}

	// 1. Convert to grayscale for better contrast
	img := imaging.Grayscale(src)

	// 2. Increase contrast more aggressively
	img = imaging.AdjustContrast(img, 30)

	// 3. Sharpen the image to make text more readable
	img = imaging.Sharpen(img, 1.5)

	// 4. Apply brightness adjustment
	img = imaging.AdjustBrightness(img, 10)

	// 5. Apply gamma correction to enhance details
	return imaging.AdjustGamma(img, 1.2)
}

// Recognize enhances img and performs OCR, returning lines top to bottom
func (s *Service) Recognize(ctx context.Context, img image.Image) ([]models.TextLine, error) {
	if img == nil {
		return nil, errors.New("no image to recognize")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, EnhanceImageForOCR(img), imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := s.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(&buf),
		s.language,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	return extractTextFromOCRResult(result), nil
}

// extractTextFromOCRResult extracts text lines with position information from OCR result
func extractTextFromOCRResult(result computervision.OcrResult) []models.TextLine {
	var textLines []models.TextLine
	if result.Regions == nil {
		return nil
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			var lineText strings.Builder
			var boundingBox []int

			// Bounding boxes arrive as "x,y,width,height"
			if line.BoundingBox != nil {
				for _, part := range strings.Split(*line.BoundingBox, ",") {
					val, _ := strconv.Atoi(strings.TrimSpace(part))
					boundingBox = append(boundingBox, val)
				}
			}

			if line.Words != nil {
				for _, word := range *line.Words {
					if word.Text == nil {
						continue
					}
					lineText.WriteString(*word.Text)
					lineText.WriteString(" ")
				}
			}

			text := strings.TrimSpace(lineText.String())
			if text == "" || len(boundingBox) < 4 {
				continue
			}
			textLines = append(textLines, models.TextLine{
				Text:   text,
				X:      boundingBox[0],
				Y:      boundingBox[1],
				Width:  boundingBox[2],
				Height: boundingBox[3],
			})
		}
	}

	// Regions come back column by column; invoices read top to bottom
	sort.SliceStable(textLines, func(i, j int) bool {
		if textLines[i].Y != textLines[j].Y {
			return textLines[i].Y < textLines[j].Y
		}
		return textLines[i].X < textLines[j].X
	})
	return textLines
}

// JoinLines renders OCR lines as newline separated text
func JoinLines(lines []models.TextLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, "\n")
}
