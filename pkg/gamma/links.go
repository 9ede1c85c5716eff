package gamma

import (
	"net/url"
	"strings"
)

// MarketURL builds the public link for a market slug. A non-empty builder
// code is attached as the via parameter for referral attribution.
func MarketURL(siteURL, slug, builderCode string) string {
	if siteURL == "" {
		siteURL = "https://polymarket.com"
	}
	link := strings.TrimRight(siteURL, "/") + "/event/" + url.PathEscape(slug)
	if builderCode != "" {
		link += "?" + url.Values{"via": {builderCode}}.Encode()
	}
	return link
}

// IsConditionID reports whether s has the shape of a CTF condition id: 0x
// followed by 64 hex digits. CLOB token ids are decimal strings.
func IsConditionID(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
