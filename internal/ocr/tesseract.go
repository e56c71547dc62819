package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	imgutil "github.com/ironsheep/docprep-mcp/internal/imaging"
)

// Tesseract recognizes text with the Tesseract engine via gosseract.
//
// A fresh gosseract client is created for every call, so a single Tesseract
// value can serve all pipeline workers concurrently. The zero value uses the
// system tessdata directory and fully automatic page segmentation.
type Tesseract struct {
	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty means TESSDATA_PREFIX or the library default.
	TessdataPrefix string

	// UpscaleBelow, when positive, enlarges regions shorter than this many
	// pixels (Lanczos, aspect preserved) before recognition. Tesseract
	// loses accuracy on glyphs below roughly 20 pixels.
	UpscaleBelow int
}

// NewTesseract returns a Tesseract recognizer reading language data from
// tessdataPrefix (may be empty).
func NewTesseract(tessdataPrefix string) *Tesseract {
	return &Tesseract{TessdataPrefix: tessdataPrefix}
}

// Recognize runs Tesseract on region with the given "+"-joined language hint.
// An empty hint falls back to DefaultLanguage.
func (t *Tesseract) Recognize(ctx context.Context, region *image.Gray, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := imgutil.Validate(region); err != nil {
		return "", err
	}

	var src image.Image = region
	if h := region.Bounds().Dy(); t.UpscaleBelow > 0 && h < t.UpscaleBelow {
		src = imaging.Resize(region, 0, t.UpscaleBelow, imaging.Lanczos)
	}

	data, err := imgutil.EncodePNG(src)
	if err != nil {
		return "", fmt.Errorf("failed to encode region: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	if err := client.SetLanguage(Languages(lang)...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Languages splits a "+"-joined hint into Tesseract language codes,
// dropping empty entries. An empty hint yields DefaultLanguage's codes.
func Languages(lang string) []string {
	if strings.TrimSpace(lang) == "" {
		lang = DefaultLanguage
	}
	var codes []string
	for _, code := range strings.Split(lang, "+") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return Languages(DefaultLanguage)
	}
	return codes
}

// TesseractVersion returns the version of the linked Tesseract library.
func TesseractVersion() string {
	return gosseract.Version()
}

// OCRInfo contains information about the OCR subsystem.
type OCRInfo struct {
	Available       bool     `json:"available"`
	Version         string   `json:"version,omitempty"`
	Error           string   `json:"error,omitempty"`
	Backend         string   `json:"backend"`
	DefaultLanguage string   `json:"default_language"`
	Languages       []string `json:"languages,omitempty"`
	Missing         []string `json:"missing,omitempty"`
}

// GetOCRInfo reports the Tesseract version, the installed language data and
// which codes of the default hint are missing.
func GetOCRInfo() OCRInfo {
	info := OCRInfo{
		Backend:         "gosseract",
		DefaultLanguage: DefaultLanguage,
		Version:         TesseractVersion(),
	}

	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		info.Error = fmt.Sprintf("failed to list language data: %v", err)
		return info
	}
	info.Languages = langs
	info.Missing = missingLanguages(Languages(DefaultLanguage), langs)

	switch {
	case len(langs) == 0:
		info.Error = "no language data installed"
	case len(info.Missing) > 0:
		info.Error = fmt.Sprintf("language data missing for %s", strings.Join(info.Missing, ", "))
		info.Available = true
	default:
		info.Available = true
	}
	return info
}

func missingLanguages(want, have []string) []string {
	installed := make(map[string]bool, len(have))
	for _, l := range have {
		installed[l] = true
	}
	var missing []string
	for _, l := range want {
		if !installed[l] {
			missing = append(missing, l)
		}
	}
	return missing
}
