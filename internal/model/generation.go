package model

import "strings"

// GenerationStatus represents the public state of a generation cycle.
// Transitions: idle → analyzing → analysis_ready → streaming → completed,
// with error reachable from any non-idle state. Cancellation is orthogonal
// and never produces the error state.
type GenerationStatus string

const (
	StatusIdle          GenerationStatus = "idle"
	StatusAnalyzing     GenerationStatus = "analyzing"
	StatusAnalysisReady GenerationStatus = "analysis_ready"
	StatusStreaming     GenerationStatus = "streaming"
	StatusCompleted     GenerationStatus = "completed"
	StatusError         GenerationStatus = "error"
)

// GenerationConfig is the immutable input to one analyze+write cycle. It is
// stored verbatim at Analyze time so Write can replay it without re-asking
// the caller.
type GenerationConfig struct {
	Title         string         `json:"title"`
	ReferenceText string         `json:"reference_text"`
	CustomOutline string         `json:"custom_outline,omitempty"` // newline-separated section titles
	Audience      string         `json:"audience,omitempty"`
	ProductText   string         `json:"product_text,omitempty"` // raw product description
	ProductBrief  *ProductBrief  `json:"product_brief,omitempty"`
	KnowledgeBase string         `json:"knowledge_base,omitempty"` // brand knowledge text
	UseRAG        bool           `json:"use_rag"`
	AutoImagePlan bool           `json:"auto_image_plan"`
	Images        []ScrapedImage `json:"images,omitempty"`
}

// OutlineTitles splits the custom outline into trimmed, non-empty titles.
func (c GenerationConfig) OutlineTitles() []string {
	if c.CustomOutline == "" {
		return nil
	}
	var titles []string
	for _, line := range strings.Split(c.CustomOutline, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

// ScrapedImage is an image collected from the reference page.
type ScrapedImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ProductBrief is the parsed product/brand context used for commercial
// injection planning.
type ProductBrief struct {
	ProductName string   `json:"product_name" yaml:"product_name"`
	BrandName   string   `json:"brand_name" yaml:"brand_name"`
	Link        string   `json:"link,omitempty" yaml:"link,omitempty"`
	Features    []string `json:"features,omitempty" yaml:"features,omitempty"`
	USPs        []string `json:"usps,omitempty" yaml:"usps,omitempty"`
}

// PainPointMapping links a reader pain point to a product feature that
// addresses it, scored against the article topic.
type PainPointMapping struct {
	PainPoint string  `json:"pain_point"`
	Feature   string  `json:"feature"`
	Score     float64 `json:"score,omitempty"`
}

// SectionResult is the Section Generator's typed output for one section.
type SectionResult struct {
	Content       string   `json:"content"`
	UsedPoints    []string `json:"used_points,omitempty"`
	InjectedCount int      `json:"injected_count"`
}
