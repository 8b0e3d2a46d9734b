// Package ingest loads course materials from a directory, a git repository
// or the GitHub API, and splits them into indexable chunks. PDF and slide
// files are handled by an external extractor service; plain-text formats
// are read natively.
package ingest

import (
	"strings"

	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// Document is one page-or-file-sized unit of loaded material, before
// chunking. Paginated sources (PDF, slides) produce one Document per page;
// prose sources produce a single Document with Page 0.
type Document struct {
	Content   string
	Filename  string
	Filepath  string
	Filetype  string
	Page      int
	ChunkType rag.ChunkType
}

// sentence boundaries the splitter prefers to cut at
const sentenceEnders = "。！？.!?\n"

// Splitter cuts prose documents into overlapping chunks, preferring
// sentence boundaries. Sizes are measured in runes so CJK text is not cut
// mid-character.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter creates a splitter with the given chunk size and overlap.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// SplitText cuts text into chunks of at most ChunkSize runes with
// ChunkOverlap runes of overlap between neighbors. Within each chunk the
// cut point backs up to the last sentence ender when one exists.
func (s *Splitter) SplitText(text string) []string {
	if text == "" {
		return []string{}
	}

	runes := []rune(text)
	textLen := len(runes)
	chunks := []string{}

	start := 0
	for start < textLen {
		end := min(start+s.ChunkSize, textLen)

		if end < textLen {
			// Search backwards for a sentence ender so the chunk stays
			// as long as possible.
			for i := end - 1; i >= start; i-- {
				if strings.ContainsRune(sentenceEnders, runes[i]) {
					end = i + 1
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))

		if end == textLen {
			break
		}

		next := end - s.ChunkOverlap
		// Overlap must never stall the scan.
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// SplitDocuments turns loaded documents into indexable chunks. Paginated
// sources are already page-sized and pass through unchanged; prose sources
// are cut by SplitText with sequential chunk ids.
func (s *Splitter) SplitDocuments(docs []Document) []rag.DocumentChunk {
	chunks := make([]rag.DocumentChunk, 0, len(docs))

	// Image OCR chunks share a page with that page's text chunk; a
	// per-page counter keeps their store keys distinct.
	type pageKey struct {
		filename string
		page     int
	}
	pageCounts := make(map[pageKey]int)

	for _, doc := range docs {
		switch doc.Filetype {
		case ".pdf", ".pptx":
			key := pageKey{filename: doc.Filename, page: doc.Page}
			chunks = append(chunks, rag.DocumentChunk{
				Content:   doc.Content,
				Filename:  doc.Filename,
				Filepath:  doc.Filepath,
				Filetype:  doc.Filetype,
				Page:      doc.Page,
				ChunkID:   pageCounts[key],
				ChunkType: doc.ChunkType,
			})
			pageCounts[key]++
		default:
			for i, piece := range s.SplitText(doc.Content) {
				chunks = append(chunks, rag.DocumentChunk{
					Content:   piece,
					Filename:  doc.Filename,
					Filepath:  doc.Filepath,
					Filetype:  doc.Filetype,
					Page:      0,
					ChunkID:   i,
					ChunkType: doc.ChunkType,
				})
			}
		}
	}

	return chunks
}
