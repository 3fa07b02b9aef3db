// Package tokenize normalizes raw text into indexable terms.
//
// It lowercases input, splits identifier-style words (camelCase, PascalCase,
// snake_case) into their components, strips punctuation, and filters out
// stopwords, short tokens, and numeric noise. The output feeds the document
// frequency index and the TF-IDF vectorizer.
package tokenize
