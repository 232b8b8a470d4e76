// Package slug turns display names into URL and identifier safe slugs.
//
// Input is folded to ASCII (diacritics are removed, a few letters without a
// canonical decomposition are mapped explicitly), lowercased, and every run of
// other characters collapses into a single separator:
//
//	slug.Make("Café Münster")                   // "cafe-munster"
//	slug.Make("Acme, Inc.", slug.MaxLength(5))  // "acme"
//	slug.Make("Acme", slug.WithSuffix(4))       // "acme-x7g3"
//
// The output only ever contains a-z, 0-9 and the separator, so its byte length
// equals its character count.
package slug
