package model

// AnalysisResult bundles the outputs of the five analysis tasks. It is
// created once by the Analyze phase and read-only afterwards, except for the
// post-join merge of regional findings into Structure.
type AnalysisResult struct {
	Product   *ProductResult        `json:"product,omitempty"`
	Structure *StructureResult      `json:"structure,omitempty"`
	Keywords  []KeywordActionPlan   `json:"keywords,omitempty"`
	Visual    *VisualAnalysis       `json:"visual,omitempty"`
	Regional  []RegionalReplacement `json:"regional,omitempty"`
}

// ProductResult is the product task's output: a parsed brief plus pain-point
// to feature mappings scored against the article topic.
type ProductResult struct {
	Brief    *ProductBrief      `json:"brief,omitempty"`
	Mappings []PainPointMapping `json:"mappings,omitempty"`
}

// StructureResult is the structure task's output: the extracted section
// plans, the intro paragraph (if any), authority analysis, optional heading
// optimizations, and regional replacements merged in after the fan-in.
type StructureResult struct {
	Sections             []SectionPlan         `json:"sections"`
	IntroParagraph       string                `json:"intro_paragraph,omitempty"`
	Authority            *AuthorityAnalysis    `json:"authority,omitempty"`
	HeadingOptimizations []HeadingOptimization `json:"heading_optimizations,omitempty"`
	RegionalReplacements []RegionalReplacement `json:"regional_replacements,omitempty"`
}

// SectionPlan is one outline entry with the narrative metadata that drives a
// single generated passage. Section order in the slice is the single source
// of truth for output ordering.
type SectionPlan struct {
	Title         string       `json:"title"`
	NarrativePlan []string     `json:"narrative_plan,omitempty"`
	CoreQuestion  string       `json:"core_question,omitempty"`
	Difficulty    string       `json:"difficulty,omitempty"`   // easy | medium | unclear
	WritingMode   string       `json:"writing_mode,omitempty"` // direct | multi_solutions
	KeyFacts      []string     `json:"key_facts,omitempty"`
	USPNotes      []string     `json:"usp_notes,omitempty"`
	Subheadings   []Subheading `json:"subheadings,omitempty"`
}

// Subheading carries per-subsection facts introduced by newer structure
// extractions. Older extractions only populate the flat KeyFacts list.
type Subheading struct {
	Title    string   `json:"title"`
	KeyFacts []string `json:"key_facts,omitempty"`
}

// AuthorityAnalysis holds authority terms and competitor vocabulary from the
// reference document.
type AuthorityAnalysis struct {
	Terms              []string `json:"terms,omitempty"`
	CompetitorBrands   []string `json:"competitor_brands,omitempty"`
	CompetitorProducts []string `json:"competitor_products,omitempty"`
	GenericTerms       []string `json:"generic_terms,omitempty"`
	Summary            string   `json:"summary,omitempty"`
}

// HeadingOptimization is an AI-suggested heading rewrite with a relevance
// score. The highest-scoring match for a normalized original wins.
type HeadingOptimization struct {
	Before string  `json:"before"`
	After  string  `json:"after"`
	Score  float64 `json:"score"`
}

// RegionalReplacement is a region-specific terminology correction.
type RegionalReplacement struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// VisualAnalysis is the visual task's output: per-image descriptions plus a
// synthesized overall style summary.
type VisualAnalysis struct {
	Images       []ImageNote `json:"images,omitempty"`
	StyleSummary string      `json:"style_summary,omitempty"`
}

// ImageNote is one analyzed reference image.
type ImageNote struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// KeywordActionPlan pairs a keyword with usage guidance for the writer.
type KeywordActionPlan struct {
	Word string   `json:"word"`
	Plan []string `json:"plan,omitempty"`
}

// ImagePlan is one planned illustration from the post-write image phase.
type ImagePlan struct {
	SectionTitle string `json:"section_title"`
	Prompt       string `json:"prompt"`
	Caption      string `json:"caption,omitempty"`
}
