package tools

import "strings"

// fuzzyMaxLines disables the fuzzy and block-anchor scans on very large
// files, where the sliding window would dominate the call.
const fuzzyMaxLines = 20000

// span is a half-open byte range [start, end) into the file content.
type span struct {
	start int
	end   int
}

// findMatches locates old_string in content, trying strategies from strict
// to lenient: exact substring, line-trimmed comparison, fuzzy similarity at
// or above threshold, then first/last line anchors. The first strategy that
// produces any match wins; later strategies never run, so a drifted copy can
// never shadow an exact one.
func findMatches(content, old string, threshold float64) ([]span, string) {
	if m := exactMatches(content, old); len(m) > 0 {
		return m, "exact"
	}
	lines := splitKeepOffsets(content)
	oldLines := strings.Split(old, "\n")
	if m := lineTrimmedMatches(content, lines, oldLines); len(m) > 0 {
		return m, "line-trimmed"
	}
	if len(lines) > fuzzyMaxLines {
		return nil, ""
	}
	if m := fuzzyMatches(content, lines, oldLines, old, threshold); len(m) > 0 {
		return m, "fuzzy"
	}
	if m := blockAnchorMatches(content, lines, oldLines, threshold); len(m) > 0 {
		return m, "block-anchor"
	}
	return nil, ""
}

func exactMatches(content, old string) []span {
	var out []span
	for from := 0; ; {
		idx := strings.Index(content[from:], old)
		if idx < 0 {
			break
		}
		start := from + idx
		out = append(out, span{start, start + len(old)})
		from = start + len(old)
	}
	return out
}

// lineRef is one content line with its byte offset.
type lineRef struct {
	text  string
	start int
}

func splitKeepOffsets(content string) []lineRef {
	var out []lineRef
	start := 0
	for i := 0; i <= len(content); i++ {
		if i == len(content) || content[i] == '\n' {
			out = append(out, lineRef{content[start:i], start})
			start = i + 1
		}
	}
	return out
}

// windowSpan returns the byte range covering lines [i, i+n).
func windowSpan(content string, lines []lineRef, i, n int) span {
	start := lines[i].start
	last := lines[i+n-1]
	return span{start, last.start + len(last.text)}
}

func lineTrimmedMatches(content string, lines []lineRef, oldLines []string) []span {
	n := len(oldLines)
	if n == 0 || n > len(lines) {
		return nil
	}
	var out []span
	for i := 0; i+n <= len(lines); i++ {
		ok := true
		for j := 0; j < n; j++ {
			if strings.TrimSpace(lines[i+j].text) != strings.TrimSpace(oldLines[j]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, windowSpan(content, lines, i, n))
			i += n - 1
		}
	}
	return out
}

// fuzzyMatches slides a window the size of the target block and keeps the
// best-scoring windows at or above threshold. Several windows tied at the
// best score all count as matches.
func fuzzyMatches(content string, lines []lineRef, oldLines []string, old string, threshold float64) []span {
	n := len(oldLines)
	if n == 0 || n > len(lines) {
		return nil
	}
	best := threshold
	var out []span
	for i := 0; i+n <= len(lines); i++ {
		s := windowSpan(content, lines, i, n)
		score := similarity(content[s.start:s.end], old)
		if score < best {
			continue
		}
		if score > best {
			best = score
			out = out[:0]
		}
		out = append(out, s)
	}
	return out
}

// blockAnchorMatches matches blocks by their first and last trimmed lines
// alone. Each anchor line only has to clear the similarity threshold, and the
// interior is never compared, so a block whose body was rewritten still
// matches as long as its frame survived. This is the loosest strategy and
// runs last.
func blockAnchorMatches(content string, lines []lineRef, oldLines []string, threshold float64) []span {
	n := len(oldLines)
	if n < 3 || n > len(lines) {
		return nil
	}
	first := strings.TrimSpace(oldLines[0])
	last := strings.TrimSpace(oldLines[n-1])

	var out []span
	for i := 0; i+n <= len(lines); i++ {
		if similarity(strings.TrimSpace(lines[i].text), first) < threshold ||
			similarity(strings.TrimSpace(lines[i+n-1].text), last) < threshold {
			continue
		}
		out = append(out, windowSpan(content, lines, i, n))
		i += n - 1
	}
	return out
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), so 1.0 means
// identical and 0.0 means nothing in common.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
