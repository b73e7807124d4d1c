package entity

import (
	"regexp"
	"strings"
)

// typeSpec is one row of the declarative classification table: ordered
// patterns, a normalizer, a validator the normalized value must satisfy,
// and the fixed priority/value/confidence heuristics for the type.
type typeSpec struct {
	patterns    []*regexp.Regexp
	normalize   func(string) string
	validate    func(string) bool
	confidence  func(string) float64
	priority    int
	searchValue SearchValue
}

// typeOrder fixes the extraction walk so dedup ("first occurrence wins") and
// output ordering are deterministic.
var typeOrder = []Type{
	TypePhone,
	TypeEmail,
	TypeIDNumber,
	TypeAccount,
	TypeName,
	TypeCompany,
	TypeLocation,
}

// identifierOrder drives the UniqueIdentifiers shortlist.
var identifierOrder = []Type{TypePhone, TypeEmail, TypeIDNumber, TypeAccount}

var (
	rePhoneIntl  = regexp.MustCompile(`\+91[-\s]?[6-9]\d{9}`)
	rePhonePlain = regexp.MustCompile(`\b0?[6-9]\d{9}\b`)

	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	rePAN      = regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)
	reAadhaar  = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	rePassport = regexp.MustCompile(`\b[A-Z][0-9]{7}\b`)
	reVoterID  = regexp.MustCompile(`\b[A-Z]{3}[0-9]{7}\b`)

	reAccount = regexp.MustCompile(`\b\d{11,18}\b`)

	reNameTitle = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2}\b`)
	reNameCaps  = regexp.MustCompile(`\b[A-Z]{2,}(?:\s+[A-Z]{2,}){1,2}\b`)

	reCompany = regexp.MustCompile(`\b[A-Z][A-Za-z&.\- ]+?(?:Pvt\.?\s*Ltd\.?|Private Limited|Limited|Ltd\.?|LLP|Inc\.?|Corp\.?)\b`)

	reCity = regexp.MustCompile(`(?i)\b(?:mumbai|delhi|new delhi|bengaluru|bangalore|hyderabad|chennai|kolkata|pune|ahmedabad|surat|jaipur|lucknow|kanpur|nagpur|indore|bhopal|patna|noida|gurgaon|gurugram|chandigarh|kochi|coimbatore)\b`)
	reAddr = regexp.MustCompile(`(?i)\b\d{1,4}[,/\s]+[a-z][a-z\s]{2,40}(?:road|street|nagar|colony|sector|lane|marg|layout|extension)\b`)

	rePhoneValid  = regexp.MustCompile(`^[6-9]\d{9}$`)
	rePANShape    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	reAllDigits   = regexp.MustCompile(`^\d+$`)
	reIDShape     = regexp.MustCompile(`^(?:[A-Z]{5}[0-9]{4}[A-Z]|\d{12}|[A-Z][0-9]{7}|[A-Z]{3}[0-9]{7})$`)
	reNonDigit    = regexp.MustCompile(`\D`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reIDSeparator = regexp.MustCompile(`[-\s]`)
)

// nameStopWords rejects name candidates made entirely of common noise words.
// Mostly field labels and city names that surface as Title Case or ALL CAPS
// spans in records.
var nameStopWords = map[string]struct{}{
	"contact": {}, "phone": {}, "mobile": {}, "email": {}, "address": {},
	"name": {}, "account": {}, "number": {}, "bank": {}, "branch": {},
	"customer": {}, "details": {}, "dear": {}, "regards": {}, "thanks": {},
	"new": {}, "near": {}, "main": {},
	"india": {}, "state": {}, "city": {}, "district": {}, "pincode": {},
	"mumbai": {}, "delhi": {}, "bengaluru": {}, "bangalore": {},
	"hyderabad": {}, "chennai": {}, "kolkata": {}, "pune": {}, "jaipur": {},
	"lucknow": {}, "noida": {}, "gurgaon": {}, "gurugram": {},
}

// nameParticles are surname/name tokens that raise confidence in a name match.
var nameParticles = map[string]struct{}{
	"kumar": {}, "singh": {}, "sharma": {}, "verma": {}, "gupta": {},
	"patel": {}, "reddy": {}, "khan": {}, "yadav": {}, "devi": {},
	"das": {}, "nair": {}, "rao": {}, "mehta": {}, "shah": {}, "joshi": {},
	"iyer": {}, "mishra": {}, "pandey": {}, "chauhan": {}, "agarwal": {},
}

func normalizePhone(s string) string {
	digits := reNonDigit.ReplaceAllString(s, "")
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return digits[1:]
	default:
		return digits
	}
}

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeCollapsed(s string) string {
	return reSpaces.ReplaceAllString(normalizeLower(s), " ")
}

func normalizeID(s string) string {
	return reIDSeparator.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// specs is the classification table. Confidence constants are heuristic
// tuning values carried over as-is; only their relative ordering matters.
var specs = map[Type]typeSpec{
	TypePhone: {
		patterns:  []*regexp.Regexp{rePhoneIntl, rePhonePlain},
		normalize: normalizePhone,
		validate:  func(v string) bool { return rePhoneValid.MatchString(v) },
		confidence: func(v string) float64 {
			if rePhoneValid.MatchString(v) {
				return 0.98
			}
			return 0.7
		},
		priority:    10,
		searchValue: SearchValueHigh,
	},
	TypeEmail: {
		patterns:    []*regexp.Regexp{reEmail},
		normalize:   normalizeLower,
		validate:    func(v string) bool { return reEmail.MatchString(v) },
		confidence:  func(string) float64 { return 0.95 },
		priority:    9,
		searchValue: SearchValueHigh,
	},
	TypeIDNumber: {
		patterns:  []*regexp.Regexp{rePAN, reAadhaar, rePassport, reVoterID},
		normalize: normalizeID,
		validate:  func(v string) bool { return reIDShape.MatchString(v) },
		confidence: func(v string) float64 {
			switch {
			case rePANShape.MatchString(v):
				return 0.99
			case len(v) == 12 && reAllDigits.MatchString(v):
				return 0.98
			default:
				return 0.85
			}
		},
		priority:    8,
		searchValue: SearchValueHigh,
	},
	TypeAccount: {
		patterns:  []*regexp.Regexp{reAccount},
		normalize: func(s string) string { return reNonDigit.ReplaceAllString(s, "") },
		validate: func(v string) bool {
			if len(v) < 11 || len(v) > 18 || !reAllDigits.MatchString(v) {
				return false
			}
			// 12-digit runs are claimed by the Aadhaar id_number shape.
			return len(v) != 12
		},
		confidence:  func(string) float64 { return 0.75 },
		priority:    7,
		searchValue: SearchValueHigh,
	},
	TypeName: {
		patterns:  []*regexp.Regexp{reNameCaps, reNameTitle},
		normalize: normalizeCollapsed,
		validate: func(v string) bool {
			words := strings.Fields(v)
			if len(words) < 2 {
				return false
			}
			for _, w := range words {
				if len(w) < 2 {
					return false
				}
			}
			return !allStopWords(words)
		},
		confidence: func(v string) float64 {
			for _, w := range strings.Fields(v) {
				if _, ok := nameParticles[w]; ok {
					return 0.85
				}
			}
			return 0.6
		},
		priority:    3,
		searchValue: SearchValueLow,
	},
	TypeCompany: {
		patterns:    []*regexp.Regexp{reCompany},
		normalize:   normalizeCollapsed,
		validate:    func(v string) bool { return len(v) >= 5 },
		confidence:  func(string) float64 { return 0.6 },
		priority:    2,
		searchValue: SearchValueLow,
	},
	TypeLocation: {
		patterns:    []*regexp.Regexp{reCity, reAddr},
		normalize:   normalizeCollapsed,
		validate:    func(v string) bool { return len(v) >= 3 },
		confidence:  func(string) float64 { return 0.5 },
		priority:    1,
		searchValue: SearchValueLow,
	},
}

func allStopWords(words []string) bool {
	for _, w := range words {
		if _, ok := nameStopWords[w]; !ok {
			return false
		}
	}
	return true
}
