package presentation

import (
	"embed"
	"html/template"
	"math"
	"strconv"

	"go-image-denoise/internal/denoise"
	"go-image-denoise/internal/noise"
	"go-image-denoise/pkg/models"
)

// Page texts.
const (
	Title          = "Adding Salt-and-Pepper Noise and Applying Denoising Filters"
	PrivacyWarning = "Do not upload sensitive or personal data. Images are processed locally in this demo app."
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template parses the embedded page templates. The page is named "index".
func Template() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"psnr": formatPSNR,
	}).ParseFS(templateFS, "templates/*.tmpl"))
}

// Form mirrors the controls of the page.
type Form struct {
	Source      string
	Example     string
	ImageURL    string
	NoiseAmount float64
	Filter      string
	KernelSize  int
	Sigma       float64
	Seed        string
}

// DefaultForm is the state of the controls on first load.
func DefaultForm(defaultExample string) Form {
	f := denoise.DefaultConfig()
	return Form{
		Source:      "example",
		Example:     defaultExample,
		NoiseAmount: noise.DefaultAmount,
		Filter:      string(f.Kind),
		KernelSize:  f.KernelSize,
		Sigma:       f.Sigma,
	}
}

// Limits feed the slider attributes.
type Limits struct {
	MinNoise, MaxNoise   float64
	MinKernel, MaxKernel int
	MinSigma, MaxSigma   float64
}

// PanelView is a panel with a trusted data URI.
type PanelView struct {
	Caption string
	Image   template.URL
}

// Page is the view model of the single page.
type Page struct {
	Title     string
	Warning   string
	Examples  []models.Example
	Form      Form
	Limits    Limits
	Panels    []PanelView
	Noisy     *models.Quality
	Filters   []models.FilterResult
	Source    *models.SourceInfo
	Notice    string
	Error     string
	RequestID string
}

// NewPage returns a page with the fixed texts and limits filled in.
func NewPage(examples []models.Example, form Form) *Page {
	return &Page{
		Title:    Title,
		Warning:  PrivacyWarning,
		Examples: examples,
		Form:     form,
		Limits: Limits{
			MinNoise:  noise.MinAmount,
			MaxNoise:  noise.MaxAmount,
			MinKernel: denoise.MinKernelSize,
			MaxKernel: denoise.MaxKernelSize,
			MinSigma:  denoise.MinSigma,
			MaxSigma:  denoise.MaxSigma,
		},
	}
}

// SetResult copies a pipeline response onto the page.
func (p *Page) SetResult(resp *models.DenoiseResponse) {
	p.Panels = make([]PanelView, len(resp.Panels))
	for i, panel := range resp.Panels {
		// Only data URIs produced by DataURI reach this point.
		p.Panels[i] = PanelView{Caption: panel.Caption, Image: template.URL(panel.Image)}
	}
	noisy := resp.Noisy
	p.Noisy = &noisy
	p.Filters = resp.Filters
	src := resp.Source
	p.Source = &src
	p.RequestID = resp.RequestID
}

func formatPSNR(v *float64) string {
	if v == nil || math.IsInf(*v, 0) {
		return "∞"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + " dB"
}
