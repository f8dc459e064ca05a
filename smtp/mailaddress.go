package smtp

import "strings"

// mailAddress splits a non-empty path (the interior of a MAIL/RCPT
// bracketed path) into local-part and domain, for logging and for the
// additional per-half length checks RFC 5321 §4.5.3.1 places on top of
// the combined-path cap parsePath already enforces. No deeper mailbox
// validation is performed: no DNS/SPF/reverse-DNS checks, which would
// require authentication and relay features this server does not have.
type mailAddress struct {
	Local  string
	Domain string
}

const (
	maxLocalPartLen  = 64
	maxDomainPartLen = 253
)

// parseMailAddress splits path on the last '@'. Source-routed paths keep
// their "@host,...:" prefix attached to Local: this server never dials
// those addresses (RCPT rejects them with 550 and calls this only to log
// the rejection), it only needs enough structure to log.
func parseMailAddress(path string) mailAddress {
	idx := strings.LastIndexByte(path, '@')
	if idx == -1 {
		return mailAddress{Local: path}
	}
	return mailAddress{Local: path[:idx], Domain: path[idx+1:]}
}

func (m mailAddress) String() string {
	if m.Domain == "" {
		return m.Local
	}
	return m.Local + "@" + m.Domain
}

// tooLong reports whether either half exceeds its individual RFC 5321
// §4.5.3.1 cap. This is an additional log/metrics signal only: the
// combined-path cap in parsePath is what actually gates the reply.
func (m mailAddress) tooLong() bool {
	return len(m.Local) > maxLocalPartLen || len(m.Domain) > maxDomainPartLen
}
