package repository

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"rubric-orchestrator/internal/domain"
)

const (
	rrfK              = 60.0
	maxCaptionRunes   = 200
	maxRerankedInputs = 30
)

// fuseRankings merges ranked lists with reciprocal rank fusion. A document's
// score is the sum of 1/(k+rank) over every list that contains it.
func fuseRankings(lists ...[]domain.SearchResultDoc) []domain.SearchResultDoc {
	type fused struct {
		doc   domain.SearchResultDoc
		score float64
		first int
	}
	byID := make(map[string]*fused)
	order := 0
	for _, list := range lists {
		for rank, doc := range list {
			f, ok := byID[doc.ID]
			if !ok {
				f = &fused{doc: doc, first: order}
				byID[doc.ID] = f
				order++
			}
			f.score += 1.0 / (rrfK + float64(rank+1))
		}
	}

	merged := make([]*fused, 0, len(byID))
	for _, f := range byID {
		merged = append(merged, f)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].first < merged[j].first
	})

	out := make([]domain.SearchResultDoc, len(merged))
	for i, f := range merged {
		out[i] = f.doc
		out[i].Score = f.score
	}
	return out
}

// filterClause renders a SearchFilter as a SQL predicate whose parameters
// start at $next. It returns "TRUE" when nothing is filtered.
func filterClause(f *domain.SearchFilter, next int) (string, []interface{}) {
	if f == nil {
		return "TRUE", nil
	}
	var clauses []string
	var args []interface{}

	if f.ExcludeCategory != "" {
		clauses = append(clauses, fmt.Sprintf("category IS DISTINCT FROM $%d", next))
		args = append(args, f.ExcludeCategory)
		next++
	}

	if sec := f.Security; sec != nil {
		var acl []string
		if sec.IncludeOIDs {
			acl = append(acl, fmt.Sprintf("oids && $%d::text[]", next))
			args = append(args, []string{sec.OID})
			next++
		}
		if sec.IncludeGroups {
			groups := sec.Groups
			if groups == nil {
				groups = []string{}
			}
			acl = append(acl, fmt.Sprintf("groups && $%d::text[]", next))
			args = append(args, groups)
		}
		if len(acl) > 0 {
			clauses = append(clauses, "("+strings.Join(acl, " OR ")+")")
		}
	}

	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

// extractCaption picks the first sentence of content that mentions a query
// term, or the opening of content when none does.
func extractCaption(content, query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, term := range terms {
			if len(term) > 2 && strings.Contains(lower, term) {
				return truncateRunes(strings.TrimSpace(s), maxCaptionRunes)
			}
		}
	}
	return truncateRunes(strings.TrimSpace(content), maxCaptionRunes)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
