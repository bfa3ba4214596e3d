package analyses

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Token accounting approximates one token as four characters, matching the
// coarse budget the reasoning backend is sized for.
const charsPerToken = 4

func estimateTokens(text string) int {
	return len(text) / charsPerToken
}

// categoryOrder fixes the inclusion order for budget assembly: requested
// categories first, in the order they were requested, then any remaining
// fetched categories alphabetically. Map iteration order must never leak
// into the assembled input.
func categoryOrder(docs map[string]string, requested []string) []string {
	order := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, form := range requested {
		form = strings.ToUpper(strings.TrimSpace(form))
		if _, ok := docs[form]; !ok {
			continue
		}
		if _, dup := seen[form]; dup {
			continue
		}
		seen[form] = struct{}{}
		order = append(order, form)
	}

	rest := make([]string, 0, len(docs))
	for form := range docs {
		if _, ok := seen[form]; !ok {
			rest = append(rest, form)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// assembleInput concatenates category texts under an approximate token
// budget. Categories are taken whole in order until one would overflow; that
// category is truncated to fit exactly and iteration stops, excluding every
// later category. The policy is order-dependent and deterministic.
func assembleInput(docs map[string]string, requested []string, budgetTokens int) string {
	if budgetTokens <= 0 {
		return ""
	}

	var sections []string
	used := 0
	for _, form := range categoryOrder(docs, requested) {
		text := docs[form]
		tokens := estimateTokens(text)
		if used+tokens <= budgetTokens {
			sections = append(sections, text)
			used += tokens
			continue
		}
		if remaining := budgetTokens - used; remaining > 0 {
			sections = append(sections, truncateChars(text, remaining*charsPerToken))
		}
		break
	}
	return strings.Join(sections, "\n\n")
}

// truncateChars cuts text to at most n bytes without splitting a UTF-8 rune
// at the boundary.
func truncateChars(text string, n int) string {
	if n >= len(text) {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
