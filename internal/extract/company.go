// Package extract mines structured company attributes and candidate contacts
// from heterogeneous analysis fragments: plain prose, embedded JSON, or both.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/model"
)

// Size mining patterns. Ranges resolve to their maximum.
var (
	sizeRangeRe  = regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:-|–|to)\s*(\d[\d,]*)\s*(?:\+\s*)?(?:employees|staff|people|workers)`)
	sizeSingleRe = regexp.MustCompile(`(?i)(\d[\d,]*)\s*\+?\s*(?:employees|staff|people|workers)`)
	teamOfRe     = regexp.MustCompile(`(?i)team of\s+(\d[\d,]*)`)
)

// servicePhraseRe captures the clause following a service-introducing verb.
var servicePhraseRe = regexp.MustCompile(`(?i)(?:provides|offers|specializes in|specializing in|delivers|services include)[:\s]+([^.!?\n]+)`)

// differentiatorKeywords trigger whole-sentence capture.
var differentiatorKeywords = []string{
	"unique", "only", "first", "leading", "award", "patented",
	"proprietary", "unlike", "differentiat", "exclusive", "pioneered",
}

const (
	maxDifferentiatorLen          = 200
	maxDifferentiatorsPerFragment = 3
)

// jsonFragment is the shape of attributes embedded as JSON in a fragment.
// Provider payloads are inconsistent about field names, so several aliases
// map onto each attribute.
type jsonFragment struct {
	Size            any      `json:"size"`
	EmployeeCount   any      `json:"employeeCount"`
	Employees       any      `json:"employees"`
	Services        []string `json:"services"`
	Differentiators []string `json:"differentiators"`
	UniquePoints    []string `json:"uniquePoints"`
}

// ParseCompanyData runs both extraction passes over every fragment and merges
// the results. List attributes union across fragments keyed on exact string
// equality; caps apply only after all fragments are processed.
func ParseCompanyData(fragments []string) model.CompanyAttrs {
	var attrs model.CompanyAttrs
	seenServices := make(map[string]bool)
	seenDiffs := make(map[string]bool)

	for _, frag := range fragments {
		// Pass 1: regex/heuristic text mining.
		if size := mineSize(frag); size > attrs.Size {
			attrs.Size = size
		}
		for _, svc := range mineServices(frag) {
			if !seenServices[svc] {
				seenServices[svc] = true
				attrs.Services = append(attrs.Services, svc)
			}
		}
		for _, d := range mineDifferentiators(frag) {
			if !seenDiffs[d] {
				seenDiffs[d] = true
				attrs.Differentiation = append(attrs.Differentiation, d)
			}
		}

		// Pass 2: best-effort JSON parse. A fragment that is not valid JSON
		// skips this pass without affecting pass 1.
		var jf jsonFragment
		if err := json.Unmarshal([]byte(frag), &jf); err != nil {
			continue
		}
		if size := pickSize(jf.Size, jf.EmployeeCount, jf.Employees); size > attrs.Size {
			attrs.Size = size
		}
		for _, svc := range jf.Services {
			svc = strings.TrimSpace(svc)
			if svc != "" && !seenServices[svc] {
				seenServices[svc] = true
				attrs.Services = append(attrs.Services, svc)
			}
		}
		for _, d := range append(jf.Differentiators, jf.UniquePoints...) {
			d = strings.TrimSpace(d)
			if d != "" && !seenDiffs[d] {
				seenDiffs[d] = true
				attrs.Differentiation = append(attrs.Differentiation, d)
			}
		}
	}

	if len(attrs.Services) > model.MaxServices {
		attrs.Services = attrs.Services[:model.MaxServices]
	}
	if len(attrs.Differentiation) > model.MaxDifferentiators {
		attrs.Differentiation = attrs.Differentiation[:model.MaxDifferentiators]
	}

	zap.L().Debug("extract: parsed company data",
		zap.Int("fragments", len(fragments)),
		zap.Int("size", attrs.Size),
		zap.Int("services", len(attrs.Services)),
		zap.Int("differentiators", len(attrs.Differentiation)),
	)

	return attrs
}

// ComputeCompanyScore derives the composite 0-100 score from merged
// attributes. The rubric is fixed: base 50, up to 20 for size tier, up to 15
// for differentiators (5 each), up to 15 for services (3 each).
func ComputeCompanyScore(attrs model.CompanyAttrs) int {
	score := 50

	switch {
	case attrs.Size > 1000:
		score += 20
	case attrs.Size > 500:
		score += 15
	case attrs.Size > 100:
		score += 10
	case attrs.Size > 50:
		score += 5
	}

	diffPts := len(attrs.Differentiation) * 5
	if diffPts > 15 {
		diffPts = 15
	}
	score += diffPts

	svcPts := len(attrs.Services) * 3
	if svcPts > 15 {
		svcPts = 15
	}
	score += svcPts

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func mineSize(frag string) int {
	if m := sizeRangeRe.FindStringSubmatch(frag); m != nil {
		lo, hi := parseCount(m[1]), parseCount(m[2])
		if hi > lo {
			return hi
		}
		return lo
	}
	if m := sizeSingleRe.FindStringSubmatch(frag); m != nil {
		return parseCount(m[1])
	}
	if m := teamOfRe.FindStringSubmatch(frag); m != nil {
		return parseCount(m[1])
	}
	return 0
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func mineServices(frag string) []string {
	var out []string
	for _, m := range servicePhraseRe.FindAllStringSubmatch(frag, -1) {
		clause := m[1]
		// Split an enumeration into individual services.
		clause = strings.ReplaceAll(clause, " and ", ",")
		for _, part := range strings.Split(clause, ",") {
			svc := strings.TrimSpace(part)
			if svc == "" || len(svc) > 80 {
				continue
			}
			out = append(out, svc)
		}
	}
	return out
}

func mineDifferentiators(frag string) []string {
	var out []string
	for _, sentence := range splitSentences(frag) {
		if len(out) >= maxDifferentiatorsPerFragment {
			break
		}
		if len(sentence) > maxDifferentiatorLen {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, kw := range differentiatorKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, sentence)
				break
			}
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(text[start:i])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// pickSize resolves the first usable numeric from JSON field aliases.
func pickSize(candidates ...any) int {
	for _, c := range candidates {
		switch v := c.(type) {
		case float64:
			if v > 0 {
				return int(v)
			}
		case string:
			if n := parseCount(strings.TrimSuffix(strings.TrimSpace(v), "+")); n > 0 {
				return n
			}
		}
	}
	return 0
}
