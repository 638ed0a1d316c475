package domain

import "unicode/utf8"

func isShort(p string) bool {
	return utf8.RuneCountInString(p) < MinSectionLength
}

// mergeShortParagraphs folds runs of short paragraphs together and attaches
// a run that is still short to the previous paragraph, or to the next long one
// when nothing precedes it.
func mergeShortParagraphs(paragraphs []string) []string {
	var merged []string
	var pending string

	flush := func(next string) string {
		if pending == "" {
			return next
		}
		switch {
		case !isShort(pending):
			merged = append(merged, pending)
		case len(merged) > 0:
			merged[len(merged)-1] += "\n\n" + pending
		default:
			next = pending + "\n\n" + next
		}
		pending = ""
		return next
	}

	for _, para := range paragraphs {
		if isShort(para) {
			if pending == "" {
				pending = para
			} else {
				pending += "\n\n" + para
			}
			continue
		}
		merged = append(merged, flush(para))
	}

	if pending != "" {
		if isShort(pending) && len(merged) > 0 {
			merged[len(merged)-1] += "\n\n" + pending
		} else {
			merged = append(merged, pending)
		}
	}
	return merged
}

// mergeAdjacentShortParagraphs is a second pass for short paragraphs left
// next to each other after the first merge.
func mergeAdjacentShortParagraphs(paragraphs []string) []string {
	if len(paragraphs) <= 1 {
		return paragraphs
	}

	var result []string
	for i := 0; i < len(paragraphs); i++ {
		current := paragraphs[i]
		for i+1 < len(paragraphs) && isShort(current) && isShort(paragraphs[i+1]) {
			current += "\n\n" + paragraphs[i+1]
			i++
		}

		if isShort(current) && i+1 < len(paragraphs) {
			paragraphs[i+1] = current + "\n\n" + paragraphs[i+1]
			continue
		}
		if isShort(current) && len(result) > 0 {
			result[len(result)-1] += "\n\n" + current
			continue
		}
		result = append(result, current)
	}
	return result
}
