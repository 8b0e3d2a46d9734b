package assistant

import (
	"fmt"
	"strings"

	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// emptyContextPlaceholder stands in for the context block when nothing
// relevant was retrieved, so the model states the gap instead of inventing
// course material.
const emptyContextPlaceholder = "（未检索到特别相关的课程材料）"

// FormatContext renders passages as numbered blocks with provenance.
// Page annotations appear only for paginated sources (page > 0).
func FormatContext(passages []rag.Passage) string {
	if len(passages) == 0 {
		return emptyContextPlaceholder
	}

	blocks := make([]string, 0, len(passages))
	for i, p := range passages {
		source := fmt.Sprintf("来源: %s", p.Filename)
		if p.Page > 0 {
			source = fmt.Sprintf("%s (第 %d 页)", source, p.Page)
		}
		blocks = append(blocks, fmt.Sprintf("文档片段 %d:\n%s\n[%s]",
			i+1, strings.TrimSpace(p.Content), source))
	}

	return strings.Join(blocks, "\n\n")
}
