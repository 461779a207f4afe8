package display

// DefaultOrder is the walk order used when configuration does not name one:
// richest formats first, the raw dump next, the fallback last.
var DefaultOrder = []string{"headers", "json", "html", "dump", "fallback"}

// Default builds the chain in DefaultOrder with shared options.
func Default(opts Options, headers map[string]string, chainOpts ...ChainOption) (*Chain, error) {
	return NewChain([]Strategy{
		NewHeaders(headers),
		NewJSON(opts),
		NewHTML(opts),
		NewDump(opts),
		NewFallback(),
	}, chainOpts...)
}
