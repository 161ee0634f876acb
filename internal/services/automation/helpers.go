package automation

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// epochTime converts Unix seconds (with fraction) to a time.Time.
func epochTime(sec float64) time.Time {
	whole := int64(sec)
	frac := int64((sec - float64(whole)) * float64(time.Second))
	return time.Unix(whole, frac)
}

// mustJSONObject encodes a string map as a JSON object literal.
func mustJSONObject(m map[string]string) string {
	data, _ := json.Marshal(m)
	return string(data)
}

// splitStreet divides a full street line into its leading house number and
// the remaining street name. "123 Main St" becomes ("123", "Main St"); a
// line with no leading digits keeps everything in the name.
func splitStreet(street string) (number, name string) {
	street = strings.TrimSpace(street)
	idx := 0
	for idx < len(street) && (unicode.IsDigit(rune(street[idx])) || street[idx] == '-' || street[idx] == '/') {
		idx++
	}
	if idx == 0 {
		return "", street
	}
	return street[:idx], strings.TrimSpace(street[idx:])
}
