package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\r?\n?(.*?)```")

func wholeObject(text string) (domain.GeneratedRecord, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return domain.GeneratedRecord{}, false
	}
	return decodeRecord([]byte(trimmed))
}

func fencedObject(text string) (domain.GeneratedRecord, bool) {
	for _, match := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(match[2])
		if !strings.HasPrefix(body, "{") {
			continue
		}
		if record, ok := decodeRecord([]byte(body)); ok {
			return record, true
		}
	}
	return domain.GeneratedRecord{}, false
}

// maxEmbeddedCandidates bounds how many balanced spans embeddedObject decodes,
// keeping the work linear in the size of the text.
const maxEmbeddedCandidates = 32

// embeddedObject tries balanced {...} spans in order of their opening brace.
func embeddedObject(text string) (domain.GeneratedRecord, bool) {
	for i, span := range balancedSpans(text) {
		if i == maxEmbeddedCandidates {
			break
		}
		if record, ok := decodeRecord([]byte(text[span[0] : span[1]+1])); ok {
			return record, true
		}
	}
	return domain.GeneratedRecord{}, false
}

// balancedSpans pairs braces in a single pass and returns [open, close]
// index pairs sorted by open. Braces inside JSON string literals are skipped;
// string tracking starts at the first unmatched open brace, so quotes in the
// surrounding prose do not count.
func balancedSpans(text string) [][2]int {
	var (
		open     []int
		spans    [][2]int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(open) > 0
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			spans = append(spans, [2]int{start, i})
		}
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a][0] < spans[b][0] })
	return spans
}

// decodeRecord accepts a JSON object carrying a "command" key. Field type
// mismatches are recorded in SchemaProblems instead of failing the decode.
func decodeRecord(payload []byte) (domain.GeneratedRecord, bool) {
	var fields map[string]json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil || fields == nil {
		return domain.GeneratedRecord{}, false
	}
	rawCommand, ok := fields["command"]
	if !ok {
		return domain.GeneratedRecord{}, false
	}

	var record domain.GeneratedRecord
	record.Command = decodeString(rawCommand, "command", &record.SchemaProblems)
	if raw, ok := fields["explanation"]; ok {
		record.Explanation = decodeString(raw, "explanation", &record.SchemaProblems)
	}
	if raw, ok := fields["confidence"]; ok {
		record.Confidence = decodeConfidence(raw, &record.SchemaProblems)
	}
	if raw, ok := fields["risk_tags"]; ok {
		record.RiskTags = decodeTags(raw, &record.SchemaProblems)
	}
	return record, true
}

func decodeString(raw json.RawMessage, field string, problems *[]string) string {
	if isNull(raw) {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be a string", field))
		return ""
	}
	return value
}

func decodeConfidence(raw json.RawMessage, problems *[]string) *float64 {
	if isNull(raw) {
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		if value, err := number.Float64(); err == nil {
			return &value
		}
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if value, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil && !math.IsInf(value, 0) {
			return &value
		}
	}
	*problems = append(*problems, "confidence must be a number")
	return nil
}

func decodeTags(raw json.RawMessage, problems *[]string) []string {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		*problems = append(*problems, "risk_tags must be a list of strings")
		return nil
	}
	tags := make([]string, 0, len(items))
	for i, item := range items {
		var tag string
		if err := json.Unmarshal(item, &tag); err != nil {
			*problems = append(*problems, fmt.Sprintf("risk_tags[%d] must be a string", i))
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
