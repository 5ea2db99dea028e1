// Package patterns holds the PII detection rules used to keep contact details
// and locations out of public task fields.
//
// Each Pattern is a compiled regexp plus a masker and an optional
// false-positive filter. The filters encode the accepted misses of the
// heuristics (measurement units next to numbers, short digit runs, webmail
// domains after an @), so changing one changes what the scanner reports.
package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

// Private field names a leaked value should move to
const (
	PrivateAddress = "private_address"
	PrivateContact = "private_contact"
	PrivateNotes   = "private_notes"
)

// Pattern is one PII detection rule
type Pattern struct {
	// Name is the stable identifier reported to callers (e.g. "phone")
	Name string
	// Description is a human label used in error messages
	Description string
	// PrivateField is where the detected value belongs instead
	PrivateField string

	Regexp *regexp.Regexp
	Mask   func(match string) string

	// FalsePositive, when set, suppresses an individual match. It receives the
	// matched text and the full field text.
	FalsePositive func(match, text string) bool
}

// FirstMatch returns the first match in text that survives the pattern's
// false-positive filter.
func (p *Pattern) FirstMatch(text string) (string, bool) {
	for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if p.FalsePositive != nil && p.FalsePositive(match, text) {
			continue
		}
		return match, true
	}
	return "", false
}

var (
	streetAddressRe = regexp.MustCompile(
		`\b(\d{1,5})\s+((?:[A-Z][A-Za-z'-]*\.?\s+){1,4})` +
			`((?i:St|Street|Ave|Avenue|Blvd|Boulevard|Dr|Drive|Rd|Road|Ln|Lane|Ct|Court|Way|Pl|Place|Cir|Circle|Hwy|Highway|Pkwy|Parkway|Terrace|Crescent|Alley|Path))\b\.?`)

	vietnameseStreetRe = regexp.MustCompile(
		`\b(\d{1,4}[A-Za-z]?(?:/\d{1,4})?)\s+((?:Nguyen|Tran|Le|Pham|Hoang|Huynh|Phan|Vu|Vo|Dang|Bui|Do|Ho|Ngo|Duong|Ly|Ton|Hai|Dien|Cach)` +
			`(?:\s+(?:Van|Thi|Duc|Hung|Ba|Bien|Mang|Thang|Dinh|Huu|Trai|Hue|Loi|Dao|Trung|Phu|Thai|Hoc|Tam|Du|Kiet|Cu|Trinh|Lai|Trac|Phong|Khai|Thanh|Minh|Thap|Tang|Nhat|Sau))+)\b`)

	unitNumberRe = regexp.MustCompile(
		`(?i)(?:\b(?:apt|apartment|unit|suite|ste|room|rm)\.?\s*#?\s*|#\s?)(\d+[a-z]?)\b`)

	phoneRe = regexp.MustCompile(
		`\+?\(?\d{1,4}\)?(?:[ .-]?\(?\d{1,4}\)?){1,5}`)

	emailRe = regexp.MustCompile(
		`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	contactNameRe = regexp.MustCompile(
		`\b((?i:contact|ask for|call|meet|speak to|speak with|find|look for|see))\s+` +
			`((?:(?:Mr|Mrs|Ms|Miss|Dr)\.?\s+)?[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

	socialHandleRe = regexp.MustCompile(
		`(?:^|[^\w.@])@(\w{2,30})\b`)

	socialReferenceRe = regexp.MustCompile(
		`(?i)\b(?:my\s+(?:instagram|insta|ig|facebook|fb|twitter|tiktok|snapchat|snap|telegram|whatsapp|zalo|linkedin)(?:\s+(?:handle|account|username|id))?\s+is|` +
			`(?:find|follow|add|message|dm|contact)\s+me\s+on\s+(?:instagram|insta|facebook|fb|twitter|tiktok|snapchat|telegram|whatsapp|zalo|linkedin))\b`)

	urlRe = regexp.MustCompile(
		`(?i)\bhttps?://[^\s/?#]+[^\s]*|\bwww\.[^\s/?#]+[^\s]*`)

	isoDateRe    = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}(?:\D|$)`)
	dayFirstRe   = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](?:\d{4}|\d{2})$`)
	timeRangeRe  = regexp.MustCompile(`^(\d{1,2})\.(\d{2})-(\d{1,2})\.(\d{2})$`)
	decimalRe    = regexp.MustCompile(`^\d{1,3}\.\d{5,}$`)
	yearSerialRe = regexp.MustCompile(`^(?:19|20)\d{2}-\d{5,}$`)
)

// measurementWords are tokens that follow a number in property or size
// descriptions ("2 bedroom", "150 sqft") and must never read as a street.
var measurementWords = map[string]bool{
	"bedroom": true, "bedrooms": true, "bed": true, "beds": true,
	"bath": true, "baths": true, "bathroom": true, "bathrooms": true,
	"sqft": true, "sq": true, "square": true, "ft": true, "feet": true, "foot": true,
	"story": true, "stories": true, "storey": true, "floor": true, "floors": true,
	"level": true, "levels": true, "room": true, "rooms": true,
	"unit": true, "units": true, "car": true, "cars": true,
	"acre": true, "acres": true, "km": true, "mile": true, "miles": true,
	"minute": true, "minutes": true, "hour": true, "hours": true,
	"day": true, "days": true, "person": true, "people": true,
}

// webmailDomains are @-tokens that belong to an email provider, not a handle
var webmailDomains = map[string]bool{
	"gmail": true, "yahoo": true, "hotmail": true, "outlook": true,
	"icloud": true, "aol": true, "protonmail": true, "proton": true,
	"live": true, "msn": true, "mail": true, "ymail": true,
}

// notNames are capitalized words that commonly follow the contact verbs
// without being a person's name.
var notNames = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
	"Me": true, "Us": true, "The": true, "This": true, "Our": true, "Your": true,
	"Attached": true, "Below": true, "Above": true,
}

var library = []*Pattern{
	{
		Name:         "address",
		Description:  "street address",
		PrivateField: PrivateAddress,
		Regexp:       streetAddressRe,
		Mask:         maskStreetAddress,
		FalsePositive: func(match, _ string) bool {
			fields := strings.Fields(match)
			if len(fields) < 2 {
				return true
			}
			return measurementWords[strings.ToLower(strings.Trim(fields[1], ".,"))]
		},
	},
	{
		Name:         "address_vn",
		Description:  "street address",
		PrivateField: PrivateAddress,
		Regexp:       vietnameseStreetRe,
		Mask:         maskVietnameseStreet,
	},
	{
		Name:         "unit_number",
		Description:  "unit or apartment number",
		PrivateField: PrivateAddress,
		Regexp:       unitNumberRe,
		Mask:         maskUnitNumber,
	},
	{
		Name:          "phone",
		Description:   "phone number",
		PrivateField:  PrivateContact,
		Regexp:        phoneRe,
		Mask:          maskPhone,
		FalsePositive: phoneFalsePositive,
	},
	{
		Name:         "email",
		Description:  "email address",
		PrivateField: PrivateContact,
		Regexp:       emailRe,
		Mask:         maskEmail,
	},
	{
		Name:         "contact_name",
		Description:  "contact person's name",
		PrivateField: PrivateContact,
		Regexp:       contactNameRe,
		Mask:         maskContactName,
		FalsePositive: func(match, _ string) bool {
			sub := contactNameRe.FindStringSubmatch(match)
			if sub == nil {
				return true
			}
			name := strings.Fields(sub[2])
			return notNames[strings.TrimSuffix(name[len(name)-1], ".")] || notNames[name[0]]
		},
	},
	{
		Name:         "social_handle",
		Description:  "social media handle",
		PrivateField: PrivateContact,
		Regexp:       socialHandleRe,
		Mask:         maskSocialHandle,
		FalsePositive: func(match, _ string) bool {
			sub := socialHandleRe.FindStringSubmatch(match)
			return sub == nil || webmailDomains[strings.ToLower(sub[1])]
		},
	},
	{
		Name:         "social_reference",
		Description:  "social media reference",
		PrivateField: PrivateContact,
		Regexp:       socialReferenceRe,
		Mask:         maskSocialReference,
	},
	{
		Name:         "url",
		Description:  "URL",
		PrivateField: PrivateNotes,
		Regexp:       urlRe,
		Mask:         maskURL,
	},
}

// Library returns the detection rules in priority order. The returned slice
// is a copy; the patterns themselves are shared and must not be modified.
func Library() []*Pattern {
	out := make([]*Pattern, len(library))
	copy(out, library)
	return out
}

// Lookup returns the pattern with the given name
func Lookup(name string) (*Pattern, bool) {
	for _, p := range library {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// phoneFalsePositive keeps ZIP codes, bare reference numbers, dates, time
// ranges and coordinates out of phone detection. A leading + needs at least
// 10 digits; anything else needs 7 digits and at least one separator.
func phoneFalsePositive(match, _ string) bool {
	trimmed := strings.TrimSpace(match)
	digits := countDigits(trimmed)
	if digits > 15 {
		return true
	}
	if isoDateRe.MatchString(trimmed) || isDayFirstDate(trimmed) || isTimeRange(trimmed) {
		return true
	}
	// "10.762622" or "2024-001234"
	if decimalRe.MatchString(trimmed) || yearSerialRe.MatchString(trimmed) {
		return true
	}
	if strings.HasPrefix(trimmed, "+") {
		return digits < 10
	}
	if digits < 7 {
		return true
	}
	return !strings.ContainsAny(trimmed, " -.()")
}

// isDayFirstDate matches DD-MM-YYYY style dates with a plausible day and month
func isDayFirstDate(s string) bool {
	m := dayFirstRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

// isTimeRange matches opening hours such as 9.00-17.30
func isTimeRange(s string) bool {
	m := timeRangeRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	for i := 1; i < len(m); i += 2 {
		hour, _ := strconv.Atoi(m[i])
		minute, _ := strconv.Atoi(m[i+1])
		if hour > 24 || minute > 59 {
			return false
		}
	}
	return true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
