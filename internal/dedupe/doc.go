// Package dedupe finds likely duplicate recordings in the catalog by
// normalized artist/title matching with a fuzzy fallback, and ranks each
// group by audio quality so the report can say which copy to keep.
package dedupe
