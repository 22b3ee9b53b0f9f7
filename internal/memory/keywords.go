package memory

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "from": {}, "into": {},
	"script": {}, "create": {}, "write": {}, "make": {}, "generate": {}, "automation": {},
	"please": {}, "can": {}, "you": {}, "all": {}, "my": {}, "me": {}, "some": {}, "using": {},
}

// Terms 把查询拆分为用于匹配的关键词，完整查询串位于首位。
func Terms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	terms := []string{query}
	seen := map[string]struct{}{query: {}}
	for _, word := range strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	}) {
		if len(word) < 3 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
	}
	return terms
}

// Matches 判断脚本的描述或平台是否包含任一关键词。
func Matches(a Automation, terms []string) bool {
	description := strings.ToLower(a.Description)
	platform := strings.ToLower(a.Platform)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(description, term) || strings.Contains(platform, term) {
			return true
		}
	}
	return false
}
