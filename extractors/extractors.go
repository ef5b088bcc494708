// Package extractors registers every built-in extractor with
// mediagrab.DefaultExtractors, for callers that just want the full set:
//
//	import _ "github.com/mediagrab/mediagrab/extractors"
package extractors

import (
	_ "github.com/mediagrab/mediagrab/extractor/raw"
)
