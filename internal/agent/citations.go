package agent

import (
	"fmt"
	"strings"

	"github.com/nbhq/notabene/internal/llm"
	"github.com/nbhq/notabene/internal/tools"
)

// Sources block delimiters. The system prompt and the appended block must
// agree on these exactly.
const (
	sourcesHeader = "---sources---"
	sourcesFooter = "---end-sources---"
)

// Citation is one entry of the sources block.
type Citation struct {
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance"`
}

// citationTracker accumulates search hits over a turn so the final answer
// can cite them. Relevance values come verbatim from the tool output; the
// first sighting of a source wins, later duplicates are dropped.
type citationTracker struct {
	order []string
	hits  map[string]float64
}

func newCitationTracker() *citationTracker {
	return &citationTracker{hits: make(map[string]float64)}
}

// recordResults inspects one step's tool results and records every search
// hit. Non-search tools and failed calls contribute nothing.
func (t *citationTracker) recordResults(calls []llm.ToolCall, results []tools.Result) {
	for i, call := range calls {
		if call.Name != tools.SearchNotesName || !results[i].OK() {
			continue
		}
		hits, ok := results[i].Data["results"].([]map[string]any)
		if !ok {
			continue
		}
		for _, hit := range hits {
			source, _ := hit["source"].(string)
			relevance, _ := hit["relevance"].(float64)
			if source == "" {
				continue
			}
			if _, seen := t.hits[source]; seen {
				continue
			}
			t.order = append(t.order, source)
			t.hits[source] = relevance
		}
	}
}

// finalize returns the answer with its sources block and the citations it
// lists. The block is always built from tracked hits, so only sources the
// tools actually returned can appear in it; a model-written block is
// stripped and its entries survive only where they match tool output.
//
// Which hits count as "used" is necessarily a heuristic: validated entries
// of a model-written block win; otherwise a source named in the answer
// text is used; when the answer names none but searches did ground it,
// every retrieved source counts. No retrieval, or an empty answer, means
// no block.
func (t *citationTracker) finalize(text string) (string, []Citation) {
	body, claimed := splitSourcesBlock(text)
	if len(t.order) == 0 || strings.TrimSpace(body) == "" {
		return body, nil
	}

	used := t.matchClaimed(claimed)
	if len(used) == 0 {
		for _, source := range t.order {
			if strings.Contains(body, source) {
				used = append(used, Citation{Source: source, Relevance: t.hits[source]})
			}
		}
	}
	if len(used) == 0 {
		for _, source := range t.order {
			used = append(used, Citation{Source: source, Relevance: t.hits[source]})
		}
	}

	var sb strings.Builder
	sb.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(sourcesHeader)
	sb.WriteString("\n")
	for _, c := range used {
		fmt.Fprintf(&sb, "- %s (relevance: %.2f)\n", c.Source, c.Relevance)
	}
	sb.WriteString(sourcesFooter)
	return sb.String(), used
}

// matchClaimed keeps the sources of model-written citation lines that the
// tracker saw in tool output, in the order the model listed them.
func (t *citationTracker) matchClaimed(lines []string) []Citation {
	var used []Citation
	seen := make(map[string]bool)
	for _, line := range lines {
		for _, source := range t.order {
			if strings.Contains(line, source) && !seen[source] {
				seen[source] = true
				used = append(used, Citation{Source: source, Relevance: t.hits[source]})
				break
			}
		}
	}
	return used
}

// splitSourcesBlock separates a model-written sources block from the
// answer body. Returns the body without the block and the block's "- "
// citation lines; a block-free answer comes back unchanged.
func splitSourcesBlock(text string) (string, []string) {
	start := strings.Index(text, sourcesHeader)
	if start < 0 {
		return text, nil
	}
	block := text[start+len(sourcesHeader):]
	rest := ""
	if end := strings.Index(block, sourcesFooter); end >= 0 {
		rest = block[end+len(sourcesFooter):]
		block = block[:end]
	}

	var lines []string
	for line := range strings.Lines(block) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			lines = append(lines, line)
		}
	}

	body := strings.TrimRight(text[:start], "\n")
	if trailing := strings.TrimSpace(rest); trailing != "" {
		body += "\n" + trailing
	}
	return body, lines
}

// systemPrompt declares the tools, the citation protocol, and the accuracy
// rules every turn runs under.
const systemPrompt = `You are a personal notes assistant. You answer questions using only the user's own notes, retrieved through the tools available to you.

Tool usage:
- Use search_notes to find relevant note passages before answering any question about the user's notes.
- Use summarize_notes to condense long passages you have already retrieved.
- Use find_gaps when the notes do not cover the question well, to suggest what the user could add.
- Use extract_entities to pull out people, dates, topics, locations, organizations, or keywords from retrieved content.

Accuracy rules:
- Only state information that is verifiably present in the tool results you received this turn.
- Never blend content from unrelated search hits into one claim.
- If no matching note content was found, say so explicitly instead of guessing.

Citation protocol: when your answer is grounded in search_notes results, end it with a sources block in exactly this form, listing each source you used with the relevance score the tool returned for it:

---sources---
- <source> (relevance: <0.XX>)
---end-sources---

List only sources you actually used. Never invent a source or a relevance value.`
