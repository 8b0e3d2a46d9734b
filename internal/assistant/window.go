package assistant

import (
	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// DefaultWindowCapacity bounds the retrieved-context working set.
const DefaultWindowCapacity = 15

// fingerprintRunes is how much content prefix participates in dedup.
const fingerprintRunes = 20

// Window is the bounded, ordered set of passages currently in scope for a
// conversation. Oldest entries sit at the front; eviction is FIFO. Update
// is a pure function, so callers always replace their window with the
// returned value.
type Window struct {
	passages []rag.Passage
	capacity int
}

// NewWindow creates an empty window. capacity <= 0 selects the default.
func NewWindow(capacity int) Window {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return Window{capacity: capacity}
}

// Passages returns the window contents oldest first. The slice is a copy.
func (w Window) Passages() []rag.Passage {
	out := make([]rag.Passage, len(w.passages))
	copy(out, w.passages)
	return out
}

// Len reports how many passages are in scope.
func (w Window) Len() int {
	return len(w.passages)
}

// Capacity reports the window bound.
func (w Window) Capacity() int {
	if w.capacity <= 0 {
		return DefaultWindowCapacity
	}
	return w.capacity
}

// fingerprint identifies a passage for dedup purposes: same source file,
// same page, same content prefix means the same passage. The prefix is
// measured in runes so multi-byte text does not split mid-character.
type fingerprint struct {
	filename string
	page     int
	prefix   string
}

func passageFingerprint(p rag.Passage) fingerprint {
	prefix := p.Content
	if runes := []rune(prefix); len(runes) > fingerprintRunes {
		prefix = string(runes[:fingerprintRunes])
	}
	return fingerprint{filename: p.Filename, page: p.Page, prefix: prefix}
}

// Update applies the intent-keyed policy and returns the resulting window:
// topic resets and clarifications replace the contents wholesale,
// continuity intents append with dedup, and chit-chat leaves the window
// untouched. After appending, the oldest entries are evicted until the
// window fits its capacity.
func (w Window) Update(newPassages []rag.Passage, intent Intent) Window {
	switch intent {
	case IntentNewTopic, IntentClarification:
		return w.replace(newPassages)
	case IntentDrillDown, IntentTopicShift, IntentSummarization:
		return w.appendDedup(newPassages)
	case IntentChitChat:
		return w
	default:
		// Unknown labels never reach here when callers go through
		// ParseIntent; treat any stray value as a topic reset.
		return w.replace(newPassages)
	}
}

// Reset returns an empty window with the same capacity.
func (w Window) Reset() Window {
	return Window{capacity: w.capacity}
}

func (w Window) replace(newPassages []rag.Passage) Window {
	next := Window{capacity: w.capacity}
	return next.appendDedup(newPassages)
}

func (w Window) appendDedup(newPassages []rag.Passage) Window {
	seen := make(map[fingerprint]bool, len(w.passages)+len(newPassages))
	merged := make([]rag.Passage, 0, len(w.passages)+len(newPassages))

	for _, p := range w.passages {
		seen[passageFingerprint(p)] = true
		merged = append(merged, p)
	}
	for _, p := range newPassages {
		fp := passageFingerprint(p)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		merged = append(merged, p)
	}

	capacity := w.Capacity()
	if len(merged) > capacity {
		merged = merged[len(merged)-capacity:]
	}

	return Window{passages: merged, capacity: w.capacity}
}
