package piiscan

import "strings"

// maskStyle selects how a matched value is rendered for display.
type maskStyle int

const (
	// maskKey shows the first and last four characters ("AKIA…MPLE").
	maskKey maskStyle = iota
	// maskEmail shows the first rune of the local part and the full domain.
	maskEmail
	// maskLastFour shows only the last four characters.
	maskLastFour
	// maskFull redacts the value entirely.
	maskFull
	// maskURL keeps the scheme and redacts the rest.
	maskURL
	// maskIP keeps the first two octets of a dotted address.
	maskIP
)

const redacted = "[REDACTED]"

// mask renders a matched value according to the style. The raw value never
// passes through unmodified.
func mask(value string, style maskStyle) string {
	switch style {
	case maskEmail:
		return maskEmailValue(value)
	case maskLastFour:
		return maskLastFourValue(value)
	case maskFull:
		return redacted
	case maskURL:
		return maskURLValue(value)
	case maskIP:
		return maskIPValue(value)
	default:
		return maskKeyValue(value)
	}
}

func maskEmailValue(value string) string {
	at := strings.IndexByte(value, '@')
	if at <= 0 {
		return redacted
	}
	local, domain := value[:at], value[at+1:]
	runes := []rune(local)
	return string(runes[0]) + "***@" + domain
}

func maskLastFourValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return redacted
	}
	return "****" + string(runes[len(runes)-4:])
}

func maskKeyValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 12 {
		return redacted
	}
	return string(runes[:4]) + "…" + string(runes[len(runes)-4:])
}

func maskURLValue(value string) string {
	i := strings.Index(value, "://")
	if i < 0 {
		return redacted
	}
	return value[:i] + "://" + redacted
}

func maskIPValue(value string) string {
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return redacted
	}
	return parts[0] + "." + parts[1] + ".*.*"
}
