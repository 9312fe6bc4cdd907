// Package wordlist serves completion candidates from an in-process
// word list. Lookup is case-insensitive prefix search over a patricia
// trie; results are ranked by frequency and re-capitalized to follow
// the typed prefix.
package wordlist

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"

	"typeahead/pattern"
	"typeahead/types"
)

// Suggestion is one ranked candidate.
type Suggestion struct {
	Word      string
	Frequency int
}

// Source holds the word list.
type Source struct {
	mu           sync.RWMutex
	trie         *patricia.Trie
	totalWords   int
	maxFrequency int
}

// NewSource returns an empty word list.
func NewSource() *Source {
	return &Source{trie: patricia.NewTrie()}
}

// Add inserts a word with its frequency. Re-adding a word overwrites
// its frequency. Words are stored lowercase.
func (s *Source) Add(word string, frequency int) {
	word = strings.ToLower(word)
	if word == "" {
		return
	}
	s.mu.Lock()
	key := patricia.Prefix(word)
	if s.trie.Get(key) == nil {
		s.totalWords++
	}
	s.trie.Set(key, frequency)
	if frequency > s.maxFrequency {
		s.maxFrequency = frequency
	}
	s.mu.Unlock()
}

// AddAll inserts words in order, assigning descending frequencies so
// earlier words rank higher.
func (s *Source) AddAll(words []string) {
	for i, w := range words {
		s.Add(w, len(words)-i)
	}
}

// MaxFrequency returns the highest frequency seen so far. Callers can
// use it to scale minFrequency thresholds to the loaded list.
func (s *Source) MaxFrequency() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxFrequency
}

// Len returns the number of distinct words.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalWords
}

// Search returns up to limit suggestions for the prefix, highest
// frequency first, ties broken alphabetically. The exact prefix itself
// is not suggested. minFrequency filters low-ranked words; 0 keeps all.
func (s *Source) Search(prefix string, limit, minFrequency int) []Suggestion {
	lower := strings.ToLower(prefix)
	if lower == "" {
		return nil
	}
	caps := capitalPositions(prefix)

	s.mu.RLock()
	var found []Suggestion
	s.trie.VisitSubtree(patricia.Prefix(lower), func(p patricia.Prefix, item patricia.Item) error {
		word := string(p)
		if word == lower {
			return nil
		}
		freq, _ := item.(int)
		if freq < minFrequency {
			return nil
		}
		found = append(found, Suggestion{Word: applyCapitalization(word, caps), Frequency: freq})
		return nil
	})
	s.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		if found[i].Frequency != found[j].Frequency {
			return found[i].Frequency > found[j].Frequency
		}
		return found[i].Word < found[j].Word
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

// FetchFunc adapts the source into a pattern fetch function. trimPrefix
// is stripped from the matched text before lookup, so trigger sigils
// like "@" do not participate in the search.
func (s *Source) FetchFunc(limit int, trimPrefix string) pattern.FetchFunc {
	return func(ctx context.Context, matched string) ([]types.Item, error) {
		query := strings.TrimPrefix(matched, trimPrefix)
		found := s.Search(query, limit, 0)

		items := make([]types.Item, 0, len(found))
		for i, sg := range found {
			items = append(items, types.Item{
				ID:   strconv.Itoa(i),
				Text: trimPrefix + sg.Word,
			})
		}
		return items, nil
	}
}

// capitalPositions records which rune positions of the typed prefix are
// upper case, so suggestions echo the user's casing.
func capitalPositions(prefix string) []bool {
	runes := []rune(prefix)
	caps := make([]bool, len(runes))
	for i, r := range runes {
		caps[i] = r >= 'A' && r <= 'Z'
	}
	return caps
}

func applyCapitalization(word string, caps []bool) string {
	if len(caps) == 0 {
		return word
	}
	runes := []rune(word)
	for i := 0; i < len(runes) && i < len(caps); i++ {
		if caps[i] && runes[i] >= 'a' && runes[i] <= 'z' {
			runes[i] = runes[i] - 'a' + 'A'
		}
	}
	return string(runes)
}
