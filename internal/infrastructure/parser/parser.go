// Package parser recovers commands from untrusted backend text.
//
// Extraction is a chain of fallible extractors tried in priority order. Each
// extractor reports "no match" through its boolean result; nothing in this
// package returns an error or panics on malformed input.
package parser

import (
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// recordExtractor yields a structured record or reports no match.
type recordExtractor func(text string) (domain.GeneratedRecord, bool)

// commandExtractor yields a single command line or reports no match.
type commandExtractor func(text string) (string, bool)

// Parser implements ports.ResponseParser.
type Parser struct {
	records  []recordExtractor
	commands []commandExtractor
}

// New returns a parser with the default extractor chains.
func New() *Parser {
	return &Parser{
		records: []recordExtractor{
			wholeObject,
			fencedObject,
			embeddedObject,
		},
		commands: []commandExtractor{
			markerLine,
			fencedCommand,
			promptLine,
			inlineCode,
			knownCommandLine,
		},
	}
}

// ExtractStructured returns the first record found by the structured chain.
func (p *Parser) ExtractStructured(text string) (domain.GeneratedRecord, bool) {
	for _, extract := range p.records {
		if record, ok := extract(text); ok {
			return record, true
		}
	}
	return domain.GeneratedRecord{}, false
}

// ExtractCommandHeuristic returns the first plausible command line.
func (p *Parser) ExtractCommandHeuristic(text string) (string, bool) {
	for _, extract := range p.commands {
		if cmd, ok := extract(text); ok {
			return cmd, true
		}
	}
	return "", false
}

var _ ports.ResponseParser = (*Parser)(nil)
