package ensembl

// manualGeneAliases maps loci with no single representative gene to a
// manually chosen one (immunoglobulin loci use a constant-region gene).
var manualGeneAliases = map[string]string{
	"IGH": "IGHG1", // representative constant region (gamma 1)
	"IGK": "IGKC",  // kappa constant region
	"IGL": "IGLC1", // lambda constant region 1
}

// grch37SymbolAliases maps current HGNC symbols back to the names the
// GRCh37 annotation still uses. The histone cluster was renamed wholesale
// between releases.
var grch37SymbolAliases = map[string]string{
	"H2BC6":  "HIST1H2BC",
	"H3C2":   "HIST1H3B",
	"H2AC11": "HIST1H2AC",
	"H2AC6":  "HIST1H2AB",
}

// ManualAlias returns the curated representative-gene alias for a locus
// symbol, if one exists.
func ManualAlias(symbol string) (string, bool) {
	alias, ok := manualGeneAliases[symbol]
	return alias, ok
}

// HistoricalSymbol returns the symbol to use for the given assembly.
// On GRCh37 renamed genes are looked up under their historical name.
func HistoricalSymbol(assembly Assembly, symbol string) string {
	if assembly != GRCh37 {
		return symbol
	}
	if old, ok := grch37SymbolAliases[symbol]; ok {
		return old
	}
	return symbol
}
