// Package heuristics holds the pure classification functions shared by the
// segmenter, the enricher and the reranker: header and table detection,
// heading levels, keyword extraction and token estimation.
package heuristics

// Thresholds are the numeric knobs of the geometry and text heuristics.
// Fractions are relative to the page height, measured from the top edge.
type Thresholds struct {
	PageHeaderFraction float64 `yaml:"page_header_fraction"`
	HeadingFraction    float64 `yaml:"heading_fraction"`
	Level1Fraction     float64 `yaml:"level1_fraction"`
	Level2Fraction     float64 `yaml:"level2_fraction"`
	HeadingMaxLength   int     `yaml:"heading_max_length"`
	TitleMaxWords      int     `yaml:"title_max_words"`
	TableSampleLines   int     `yaml:"table_sample_lines"`
	MinDelimiters      int     `yaml:"min_delimiters"`
}

// DefaultThresholds returns the production values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PageHeaderFraction: 0.15,
		HeadingFraction:    0.30,
		Level1Fraction:     0.10,
		Level2Fraction:     1.0 / 3.0,
		HeadingMaxLength:   80,
		TitleMaxWords:      8,
		TableSampleLines:   5,
		MinDelimiters:      2,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.PageHeaderFraction <= 0 {
		t.PageHeaderFraction = d.PageHeaderFraction
	}
	if t.HeadingFraction <= 0 {
		t.HeadingFraction = d.HeadingFraction
	}
	if t.Level1Fraction <= 0 {
		t.Level1Fraction = d.Level1Fraction
	}
	if t.Level2Fraction <= 0 {
		t.Level2Fraction = d.Level2Fraction
	}
	if t.HeadingMaxLength <= 0 {
		t.HeadingMaxLength = d.HeadingMaxLength
	}
	if t.TitleMaxWords <= 0 {
		t.TitleMaxWords = d.TitleMaxWords
	}
	if t.TableSampleLines <= 0 {
		t.TableSampleLines = d.TableSampleLines
	}
	if t.MinDelimiters <= 0 {
		t.MinDelimiters = d.MinDelimiters
	}
	return t
}
