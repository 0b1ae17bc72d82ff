package panel

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GeneConfig holds the per-gene region settings. Filters are kept as raw
// expressions; the pipeline parses them per gene so a syntax error rejects
// only that gene.
type GeneConfig struct {
	Include5UTR    bool
	Include3UTR    bool
	IncludeIntrons bool
	ExonFilter     string // "", "all", or e.g. "1,3,5-7"
	IntronFilter   string
	Flank5         int64
	Flank3         int64
}

// Override is one gene's entry in a per-gene overrides file. Nil fields
// leave the default untouched.
type Override struct {
	UTR5         *bool   `yaml:"utr5"`
	UTR3         *bool   `yaml:"utr3"`
	Introns      *bool   `yaml:"introns"`
	Exons        *string `yaml:"exons"`
	IntronFilter *string `yaml:"intron_filter"`
	Flank5       *int64  `yaml:"flank5"`
	Flank3       *int64  `yaml:"flank3"`
}

// Overrides maps gene symbols (case-insensitive) to per-gene settings.
type Overrides map[string]Override

// LoadOverrides reads a YAML overrides file:
//
//	MYC:
//	  flank5: 2000
//	BRCA1:
//	  utr5: true
//	  exons: "1-10"
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var raw Overrides
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse overrides file %s: %w", path, err)
	}

	out := make(Overrides, len(raw))
	for symbol, ov := range raw {
		out[strings.ToUpper(symbol)] = ov
	}
	return out, nil
}

// Apply returns defaults with the gene's overrides applied.
func (o Overrides) Apply(symbol string, defaults GeneConfig) GeneConfig {
	ov, ok := o[strings.ToUpper(symbol)]
	if !ok {
		return defaults
	}

	cfg := defaults
	if ov.UTR5 != nil {
		cfg.Include5UTR = *ov.UTR5
	}
	if ov.UTR3 != nil {
		cfg.Include3UTR = *ov.UTR3
	}
	if ov.Introns != nil {
		cfg.IncludeIntrons = *ov.Introns
	}
	if ov.Exons != nil {
		cfg.ExonFilter = *ov.Exons
	}
	if ov.IntronFilter != nil {
		cfg.IntronFilter = *ov.IntronFilter
	}
	if ov.Flank5 != nil {
		cfg.Flank5 = *ov.Flank5
	}
	if ov.Flank3 != nil {
		cfg.Flank3 = *ov.Flank3
	}
	return cfg
}
