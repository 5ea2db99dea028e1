package patterns

import (
	"strings"
)

// Marker is appended wherever a masker hides characters
const Marker = "***"

func maskStreetAddress(match string) string {
	sub := streetAddressRe.FindStringSubmatch(match)
	if sub == nil {
		return Marker
	}
	return sub[1] + " " + prefix(strings.TrimSpace(sub[2]), 3) + Marker + " " + sub[3]
}

func maskVietnameseStreet(match string) string {
	sub := vietnameseStreetRe.FindStringSubmatch(match)
	if sub == nil {
		return Marker
	}
	return sub[1] + " " + prefix(sub[2], 3) + Marker
}

func maskUnitNumber(match string) string {
	loc := unitNumberRe.FindStringSubmatchIndex(match)
	if loc == nil || loc[2] < 0 {
		return Marker
	}
	label := strings.TrimSpace(match[:loc[2]])
	if label == "" {
		return Marker
	}
	return label + " " + Marker
}

// maskPhone keeps the first and last three digits
func maskPhone(match string) string {
	trimmed := strings.TrimSpace(match)
	var digits []rune
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	lead := ""
	if strings.HasPrefix(trimmed, "+") {
		lead = "+"
	}
	if len(digits) <= 6 {
		return lead + Marker
	}
	hidden := strings.Repeat("*", len(digits)-6)
	if len(hidden) < len(Marker) {
		hidden = Marker
	}
	return lead + string(digits[:3]) + hidden + string(digits[len(digits)-3:])
}

// maskEmail keeps the first two characters of the local part and the domain
func maskEmail(match string) string {
	at := strings.LastIndex(match, "@")
	if at <= 0 {
		return Marker
	}
	return prefix(match[:at], 2) + Marker + match[at:]
}

func maskContactName(match string) string {
	sub := contactNameRe.FindStringSubmatch(match)
	if sub == nil {
		return Marker
	}
	return sub[1] + " " + prefix(sub[2], 1) + Marker
}

func maskSocialHandle(match string) string {
	sub := socialHandleRe.FindStringSubmatch(match)
	if sub == nil {
		return "@" + Marker
	}
	return "@" + prefix(sub[1], 2) + Marker
}

func maskSocialReference(match string) string {
	words := strings.Fields(match)
	if len(words) == 0 {
		return Marker
	}
	return words[0] + " " + Marker
}

// maskURL reduces a URL to scheme and host
func maskURL(match string) string {
	url := strings.TrimRight(match, ".,;:!?)\"'")
	scheme := ""
	rest := url
	if i := strings.Index(url, "://"); i >= 0 {
		scheme = url[:i+3]
		rest = url[i+3:]
	}
	host := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host = rest[:i]
	}
	return scheme + host + "/" + Marker
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
