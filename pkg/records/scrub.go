package records

import (
	"math"
	"regexp"
	"strings"
)

var (
	reUUID       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	reScientific = regexp.MustCompile(`^-?\d+(?:\.\d+)?[eE][+-]?\d+$`)
	reLongDigits = regexp.MustCompile(`^\d{15,}$`)
	reISOStamp   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`)
)

var noisyFieldNames = map[string]struct{}{
	"id": {}, "uuid": {}, "created_at": {}, "updated_at": {},
	"timestamp": {}, "inserted_at": {}, "deleted_at": {},
}

// ScrubRecord drops fields that would poison lead discovery: internal
// identifiers, timestamps, UUIDs and numeric junk that the extractor would
// otherwise misread as phones or accounts. Returns a new map; the input is
// not modified.
func ScrubRecord(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if noisyFieldName(key) {
			continue
		}
		if noisyValue(value) {
			continue
		}
		out[key] = value
	}
	return out
}

func noisyFieldName(key string) bool {
	k := strings.ToLower(key)
	if _, ok := noisyFieldNames[k]; ok {
		return true
	}
	return strings.HasPrefix(k, "_") || strings.HasSuffix(k, "_id")
}

func noisyValue(value any) bool {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return true
		}
		if v != math.Trunc(v) {
			return true
		}
		// more digits than any identifier we care to rediscover
		return v >= 1e10
	case string:
		s := strings.TrimSpace(v)
		return reUUID.MatchString(s) ||
			reScientific.MatchString(s) ||
			reLongDigits.MatchString(s) ||
			reISOStamp.MatchString(s)
	default:
		return false
	}
}
