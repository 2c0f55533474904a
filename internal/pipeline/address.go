package pipeline

import (
	"net/mail"
	"regexp"
	"strings"
)

// Inbound aliases look like <alias>@receipts.snapfolio.app (or .com). The
// alias is a lowercase alphanumeric token.
var (
	aliasPattern = regexp.MustCompile(`^([a-z0-9]+)@receipts\.snapfolio\.(?:app|com)$`)
	aliasToken   = regexp.MustCompile(`^[a-z0-9]+$`)
)

// ResolveAlias extracts the receipt alias from a raw To header value, which
// may carry a display name and angle brackets. When the domain is not one of
// ours it falls back to the local-part before the first @. Returns "" when
// no alias can be extracted.
func ResolveAlias(to string) string {
	addr := strings.TrimSpace(to)
	if parsed, err := mail.ParseAddress(to); err == nil {
		addr = parsed.Address
	}
	addr = strings.ToLower(strings.TrimSpace(addr))

	if m := aliasPattern.FindStringSubmatch(addr); m != nil {
		return m[1]
	}

	idx := strings.Index(addr, "@")
	if idx <= 0 {
		return ""
	}
	local := addr[:idx]
	if !aliasToken.MatchString(local) {
		return ""
	}
	return local
}
