package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Block is one POS message cut out of a pasted text
type Block struct {
	Kind BlockKind
	// Start and End are byte offsets into the original text
	Start int
	End   int
	// Raw is text[Start:End]; Text is Raw trimmed
	Raw  string
	Text string
}

// Segmenter splits pasted chat text into POS message blocks
type Segmenter struct {
	markers    []compiledMarker
	header     *regexp.Regexp
	lookBehind int
}

type compiledMarker struct {
	kind BlockKind
	re   *regexp.Regexp
}

type occurrence struct {
	kind  BlockKind
	match int
	start int
}

// NewSegmenter compiles the marker phrases of p
func NewSegmenter(p Patterns) *Segmenter {
	s := &Segmenter{header: p.MessageHeader, lookBehind: p.LookBehind}
	for _, m := range p.Markers {
		s.markers = append(s.markers, compiledMarker{
			kind: m.Kind,
			re:   regexp.MustCompile(`(?i)` + regexp.QuoteMeta(m.Phrase)),
		})
	}
	return s
}

// Split returns one block per marker occurrence, ordered by position.
// Blocks are contiguous: each runs to the start of the next, the last to the
// end of text. Text before the first block belongs to no block.
func (s *Segmenter) Split(text string) []Block {
	var occs []occurrence
	for _, m := range s.markers {
		for _, loc := range m.re.FindAllStringIndex(text, -1) {
			occs = append(occs, occurrence{kind: m.kind, match: loc[0]})
		}
	}
	if len(occs) == 0 {
		return nil
	}

	sort.SliceStable(occs, func(i, j int) bool { return occs[i].match < occs[j].match })

	for i := range occs {
		occs[i].start = s.messageStart(text, occs[i].match)
		if i == 0 {
			continue
		}
		// Both markers belong to the same message: cut at the later marker's
		// own line so neither block is empty.
		if prev := occs[i-1]; occs[i].start <= prev.match {
			occs[i].start = lineStart(text, occs[i].match)
			if occs[i].start <= prev.match {
				occs[i].start = occs[i].match
			}
		}
	}

	blocks := make([]Block, 0, len(occs))
	for i, o := range occs {
		end := len(text)
		if i+1 < len(occs) {
			end = occs[i+1].start
		}
		raw := text[o.start:end]
		blocks = append(blocks, Block{
			Kind:  o.kind,
			Start: o.start,
			End:   end,
			Raw:   raw,
			Text:  strings.TrimSpace(raw),
		})
	}
	return blocks
}

// messageStart finds where the chat message containing the marker at idx
// begins: the nearest header line within the look-behind window, otherwise
// the line before the marker's line.
func (s *Segmenter) messageStart(text string, idx int) int {
	from := idx - s.lookBehind
	if from < 0 {
		from = 0
	}
	for from < idx && !utf8.RuneStart(text[from]) {
		from++
	}

	before := text[from:idx]
	end := len(before)
	for end >= 0 {
		begin := strings.LastIndexByte(before[:end], '\n') + 1
		if s.header.MatchString(strings.TrimSpace(before[begin:end])) {
			return from + begin
		}
		if begin == 0 {
			break
		}
		end = begin - 1
	}

	prevNewline := strings.LastIndexByte(text[:idx], '\n')
	if prevNewline <= 0 {
		return 0
	}
	return strings.LastIndexByte(text[:prevNewline], '\n') + 1
}

func lineStart(text string, idx int) int {
	return strings.LastIndexByte(text[:idx], '\n') + 1
}
