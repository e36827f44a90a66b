/*
Package extract implements the stateless slot extractors.

Every extractor is a pure function of one Input and reports either a value or
no match. No match is never an error: it means the slot stays unanswered.

Numeric extractors (duration, severity, temperature) read the lowercased raw
text. Vocabulary based extractors read the synonym-expanded text, so one
vocabulary serves both languages known to the lexicon.

Flow tables refer to extractors by kind through Build.
*/
package extract
