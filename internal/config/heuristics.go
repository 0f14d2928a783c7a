package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/markdave123-py/Docsift/internal/core/enricher"
	"github.com/markdave123-py/Docsift/internal/core/reranker"
	"github.com/markdave123-py/Docsift/internal/core/segmenter"
)

// Tuning holds the numeric knobs of the segmenter, enricher and reranker.
// A YAML file overlays the defaults; fields it omits keep their default.
//
//	segmenter:
//	  token_budget: 4000
//	  thresholds:
//	    heading_fraction: 0.3
//	reranker:
//	  min_relevance: 0.7
type Tuning struct {
	Segmenter segmenter.Config `yaml:"segmenter"`
	Enricher  enricher.Config  `yaml:"enricher"`
	Reranker  reranker.Config  `yaml:"reranker"`
}

func DefaultTuning() *Tuning {
	return &Tuning{
		Segmenter: segmenter.DefaultConfig(),
		Enricher:  enricher.DefaultConfig(),
		Reranker:  reranker.DefaultConfig(),
	}
}

// LoadTuning reads path over the defaults. An empty path or a missing file
// returns the defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if m := t.Reranker.MinRelevance; m < 0 || m > 1 {
		return nil, fmt.Errorf("reranker.min_relevance must be within [0, 1], got %v", m)
	}
	t.Segmenter.Thresholds = t.Segmenter.Thresholds.WithDefaults()
	t.Enricher.Thresholds = t.Segmenter.Thresholds
	return t, nil
}
