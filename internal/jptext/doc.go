// Package jptext provides Japanese text normalization helpers shared by the
// matcher and the portal parsers.
//
// The primary use cases are:
//   - Folding full-width ASCII variants (digits, letters, punctuation) to
//     their half-width forms so scraped text compares consistently
//   - Converting kanji numerals embedded in addresses to arabic digits
//   - Computing a symmetric character-bigram similarity between names
//
// Everything here is pure and allocation-light; callers normalize once and
// compare many times.
package jptext
