// Package lexicon provides the text matching primitives used by slot extractors:
// normalization, word-boundary aware phrase matching and bilingual synonym expansion.
package lexicon
