package dataset

// Purify normalizes a function's source text before it enters the
// pipeline (comment stripping, preprocessor removal, whitespace
// canonicalisation). Purification itself is out of scope here; this hook
// lets a real purifier be substituted later without touching the loaders,
// which otherwise assume pre-purified input.
type Purify func(code string) string

// NoopPurify returns code unchanged. It is the default Purify used when no
// purifier is configured.
func NoopPurify(code string) string {
	return code
}
