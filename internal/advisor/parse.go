package advisor

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"FundPilot/internal/model"
)

// ErrMalformed means the reply carried no recognizable decision.
var ErrMalformed = errors.New("advisor reply has no decision")

// MaxRationaleRunes caps the rationale kept from a reply.
const MaxRationaleRunes = 200

var (
	decisionTags   = []string{"【决策】", "DECISION:"}
	confidenceTags = []string{"【信心度】", "CONFIDENCE:"}
	reasonTags     = []string{"【核心理由】", "【理由】", "REASONS:"}

	allTags = append(append(append([]string{}, decisionTags...), confidenceTags...), reasonTags...)

	// decisionKeywords in the order they are tried; the earliest match in the section wins.
	decisionKeywords = []string{"双倍补仓", "正常定投", "暂停定投", "观望"}

	percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	enumeration    = regexp.MustCompile(`^\s*\d+[.、]\s*$`)
)

// Parse extracts an Advice from a free-text reply. Both the bracketed Chinese
// tags and the plain English tags are understood. When no decision can be
// found the returned Advice has an invalid Decision and err is ErrMalformed.
func Parse(reply string) (*model.Advice, error) {
	advice := &model.Advice{
		Confidence:      model.DefaultConfidenceScore,
		ConfidenceLabel: model.LevelForScore(model.DefaultConfidenceScore),
	}

	if sec, ok := section(reply, reasonTags); ok {
		advice.Rationale = truncate(collapse(sec), MaxRationaleRunes)
	}
	if advice.Rationale == "" {
		advice.Rationale = truncate(collapse(reply), MaxRationaleRunes)
	}

	if sec, ok := section(reply, confidenceTags); ok {
		if score, found := parseConfidence(sec); found {
			advice.Confidence = score
			advice.ConfidenceLabel = model.LevelForScore(score)
		}
	}

	sec, ok := section(reply, decisionTags)
	if !ok {
		return advice, ErrMalformed
	}
	d, ok := parseDecision(sec)
	if !ok {
		return advice, ErrMalformed
	}
	advice.Decision = d
	return advice, nil
}

// section returns the text after the first tag found, up to the next known tag.
func section(text string, tags []string) (string, bool) {
	for _, tag := range tags {
		i := indexFold(text, tag)
		if i < 0 {
			continue
		}
		rest := text[i+len(tag):]
		end := len(rest)
		for _, other := range allTags {
			if j := indexFold(rest, other); j >= 0 && j < end {
				end = j
			}
		}
		rest = strings.TrimLeft(rest[:end], "：: \t")
		return trimEnumeration(rest), true
	}
	return "", false
}

// indexFold is a case-insensitive strings.Index for ASCII tags.
func indexFold(s, tag string) int {
	for i := 0; i+len(tag) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(tag)], tag) {
			return i
		}
	}
	return -1
}

// trimEnumeration drops a trailing "2." left over from numbered replies.
func trimEnumeration(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for len(lines) > 0 && enumeration.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func parseDecision(s string) (model.Decision, bool) {
	best, bestAt := model.Decision(0), -1
	for _, kw := range decisionKeywords {
		if i := strings.Index(s, kw); i >= 0 && (bestAt < 0 || i < bestAt) {
			best, _ = model.ParseDecision(kw)
			bestAt = i
		}
	}
	if bestAt >= 0 {
		return best, true
	}
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) {
		if d, ok := model.ParseDecision(tok); ok {
			return d, true
		}
	}
	return 0, false
}

func parseConfidence(s string) (float64, bool) {
	if m := percentPattern.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v <= 100 {
			return v / 100, true
		}
	}
	first := strings.Fields(s)
	if len(first) > 0 {
		if v, ok := model.ParseConfidence(strings.Trim(first[0], "[]（）()。.,，")); ok {
			return v, true
		}
	}
	for _, label := range []string{"高", "中", "低"} {
		if strings.Contains(s, label) {
			return model.ParseConfidence(label)
		}
	}
	return 0, false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
