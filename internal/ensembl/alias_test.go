package ensembl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualAlias(t *testing.T) {
	alias, ok := ManualAlias("IGH")
	assert.True(t, ok)
	assert.Equal(t, "IGHG1", alias)

	_, ok = ManualAlias("TP53")
	assert.False(t, ok)
}

func TestHistoricalSymbol(t *testing.T) {
	// Renames only apply on GRCh37.
	assert.Equal(t, "HIST1H2BC", HistoricalSymbol(GRCh37, "H2BC6"))
	assert.Equal(t, "H2BC6", HistoricalSymbol(GRCh38, "H2BC6"))
	assert.Equal(t, "TP53", HistoricalSymbol(GRCh37, "TP53"))
}
