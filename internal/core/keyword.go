package core

import "strings"

// Separators a payment processor may wedge between its name and the
// merchant token.
const processorSeparators = " -:/*"

// DeriveKeyword suggests a rule keyword for a transaction, upper-cased,
// from its description alone. Heuristics are tried in a fixed priority
// order and only the first that produces a result is used:
//
//  1. A standalone word PAYPAL: the merchant token after it is pulled
//     out, giving "PAYPAL" or "PAYPAL TOKEN".
//  2. A VISA- marker: the first whitespace token after the marker.
//  3. Otherwise the first run of three or more word characters.
//
// Returns "" when the description offers nothing usable.
func DeriveKeyword(t Transaction) string {
	desc := t.Description
	lower := strings.ToLower(desc)

	if standaloneIndex(lower, "paypal") >= 0 {
		rest := desc[strings.Index(lower, "paypal")+len("paypal"):]
		rest = strings.TrimLeft(rest, processorSeparators)
		if tok := leadingWordRun(rest); tok != "" {
			return "PAYPAL " + strings.ToUpper(tok)
		}
		return "PAYPAL"
	}

	if i := strings.Index(lower, "visa-"); i >= 0 {
		fields := strings.Fields(desc[i+len("visa-"):])
		if len(fields) > 0 && fields[0] != "" {
			return strings.ToUpper(fields[0])
		}
	}

	if tok := firstWordRun(desc, 3); tok != "" {
		return strings.ToUpper(tok)
	}
	return ""
}

// standaloneIndex finds word in s bounded on both sides by a non-word
// character or the string edge. Returns -1 when only embedded
// occurrences exist, so "paypal.com" does not count as the standalone
// word "paypal".
func standaloneIndex(s, word string) int {
	for from := 0; ; {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		beforeOK := i == 0 || !isWordChar(s[i-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return i
		}
		from = i + 1
	}
}

func leadingWordRun(s string) string {
	end := 0
	for end < len(s) && isWordChar(s[end]) {
		end++
	}
	return s[:end]
}

// firstWordRun returns the first maximal run of word characters at
// least min long, or "".
func firstWordRun(s string, min int) string {
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && isWordChar(s[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= min {
			return s[start:i]
		}
		start = -1
	}
	return ""
}
