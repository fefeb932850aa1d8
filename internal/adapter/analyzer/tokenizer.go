package analyzer

import (
	"strings"
	"unicode"
)

// Options controls normalization. The same options must be used for indexing
// and for queries; mixing them silently degrades ranking.
type Options struct {
	StripStopwords bool
	UseStemming    bool
}

// Tokenizer turns raw text into a normalized token sequence: lowercased,
// split on non-word runes, with optional stopword removal and stemming.
// Tokenize is deterministic and has no side effects.
type Tokenizer struct {
	opts      Options
	stemmer   *PorterStemmer
	stopwords map[string]struct{}
}

// NewTokenizer creates a Tokenizer with the given options.
func NewTokenizer(opts Options) *Tokenizer {
	t := &Tokenizer{opts: opts}
	if opts.UseStemming {
		t.stemmer = NewPorterStemmer()
	}
	if opts.StripStopwords {
		t.stopwords = defaultStopwords()
	}
	return t
}

// Tokenize splits text into normalized tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if word == "" {
			continue
		}
		if t.opts.StripStopwords {
			if _, isStop := t.stopwords[word]; isStop {
				continue
			}
		}
		if t.stemmer != nil {
			word = t.stemmer.Stem(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// splitWords splits text on anything that is not a letter, digit, or
// underscore.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
