// Package parser recovers cash-register closings from text pasted out of a
// chat: POS closing reports, declared-cash messages and openings.
package parser

import (
	"fmt"
	"strings"

	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// Operator-facing parse errors
const (
	ErrMsgEmptyText  = "Texto vacío"
	ErrMsgNoClosings = "No se encontraron cierres válidos en el texto"
)

// Result is the outcome of parsing one pasted text. Success is true iff at
// least one closing was produced, whatever the warnings.
type Result struct {
	Success  bool             `json:"success"`
	Records  []entity.Closing `json:"records"`
	Errors   []string         `json:"errors"`
	Warnings []string         `json:"warnings"`
}

// Parser runs segmentation, extraction and combination
type Parser struct {
	segmenter *Segmenter
	extractor *Extractor
}

// New creates a parser from explicit collaborators
func New(p Patterns, resolver *BusinessResolver, dateParser *dates.Parser, clock dates.Clock) *Parser {
	return &Parser{
		segmenter: NewSegmenter(p),
		extractor: NewExtractor(p, resolver, dateParser, clock),
	}
}

// NewDefault creates a parser with the default patterns, aliases and month
// tables, reading dates in the clock's location
func NewDefault(clock dates.Clock) *Parser {
	return New(
		DefaultPatterns(),
		NewBusinessResolver(DefaultAliases, DefaultBusinesses),
		dates.NewParser(dates.DefaultTables(), clock.Location),
		clock,
	)
}

// Parse turns a pasted text into closings
func (p *Parser) Parse(raw string) Result {
	result := Result{Errors: []string{}, Warnings: []string{}}

	if strings.TrimSpace(raw) == "" {
		result.Errors = append(result.Errors, ErrMsgEmptyText)
		return result
	}

	combiner := NewCombiner()
	for i, block := range p.segmenter.Split(raw) {
		result.Warnings = append(result.Warnings, p.parseBlock(combiner, i, block)...)
	}

	records, orphans := combiner.Records()
	result.Warnings = append(result.Warnings, orphans...)

	if len(records) == 0 {
		result.Errors = append(result.Errors, ErrMsgNoClosings)
		return result
	}

	result.Success = true
	result.Records = records
	return result
}

// parseBlock extracts one block into the combiner. Extraction is not
// expected to panic; if it does the block is skipped with a warning.
func (p *Parser) parseBlock(c *Combiner, index int, block Block) (notes []string) {
	defer func() {
		if r := recover(); r != nil {
			notes = append(notes, fmt.Sprintf("Error parseando bloque %d: %v", index, r))
		}
	}()

	switch block.Kind {
	case BlockClosing:
		r := p.extractor.ExtractClosing(block.Text)
		notes = append(notes, businessNote(index, r.Business, r.BusinessMatch)...)
		label := closingLabel(r)
		if !r.HasSequence {
			notes = append(notes, fmt.Sprintf("Cierre sin ID en bloque %d (%s)", index, label))
		}
		if r.DateSource == DateFromClock {
			notes = append(notes, fmt.Sprintf("Fecha no encontrada en cierre %s; se usó la fecha de hoy", label))
		}
		if r.CashComputed == 0 && r.CashTotal == 0 {
			notes = append(notes, fmt.Sprintf("Cierre %s con efectivo total en cero", label))
		}
		c.AddClosing(index, r)
	case BlockDeclared:
		r := p.extractor.ExtractDeclared(block.Text)
		notes = append(notes, businessNote(index, r.Business, r.BusinessMatch)...)
		c.AddDeclared(index, r)
	case BlockOpening:
		r := p.extractor.ExtractOpening(block.Text)
		notes = append(notes, businessNote(index, r.Business, r.BusinessMatch)...)
		c.AddOpening(r)
	}
	return notes
}

func businessNote(index int, name string, match Match) []string {
	switch {
	case name == "":
		return []string{fmt.Sprintf("Punto no identificado en bloque %d", index)}
	case match == MatchNone:
		return []string{fmt.Sprintf("Punto no reconocido en bloque %d: %q", index, name)}
	default:
		return nil
	}
}

func closingLabel(r ClosingRecord) string {
	business := r.Business
	if business == "" {
		business = unknownBusiness
	}
	if r.HasSequence {
		return fmt.Sprintf("%s #%d", business, r.SequenceID)
	}
	return business
}
