package piiscan

import (
	"strconv"
	"strings"
)

// luhnValid reports whether the digits of value pass the Luhn checksum.
// Spaces and dashes are ignored; anything else fails.
func luhnValid(value string) bool {
	var digits []int
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	if len(digits) < 12 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ssnValid applies the SSA issuance exclusions: area 000, 666 or 900-999,
// group 00, serial 0000 are never issued.
func ssnValid(value string) bool {
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return false
	}
	area, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	if area == 0 || area == 666 || area >= 900 {
		return false
	}
	if parts[1] == "00" || parts[2] == "0000" {
		return false
	}
	return true
}

// publicIPv4 reports whether value is a well-formed IPv4 address outside
// the private, loopback, link-local and unspecified ranges. Private
// addresses are infrastructure detail, not a leak.
func publicIPv4(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return false
	}
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
		if len(p) > 1 && p[0] == '0' {
			return false
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 10,
		octets[0] == 127,
		octets[0] == 0,
		octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31,
		octets[0] == 192 && octets[1] == 168,
		octets[0] == 169 && octets[1] == 254:
		return false
	}
	return true
}

// routingValid applies the ABA checksum over a nine-digit routing number.
func routingValid(value string) bool {
	if len(value) != 9 {
		return false
	}
	sum := 0
	weights := [9]int{3, 7, 1, 3, 7, 1, 3, 7, 1}
	for i := 0; i < 9; i++ {
		d := int(value[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		sum += d * weights[i]
	}
	return sum != 0 && sum%10 == 0
}

// ibanValid applies the ISO 13616 mod-97 check.
func ibanValid(value string) bool {
	if len(value) < 15 || len(value) > 34 {
		return false
	}
	rearranged := value[4:] + value[:4]

	remainder := 0
	for _, r := range rearranged {
		var chunk string
		switch {
		case r >= '0' && r <= '9':
			chunk = string(r)
		case r >= 'A' && r <= 'Z':
			chunk = strconv.Itoa(int(r-'A') + 10)
		default:
			return false
		}
		for _, c := range chunk {
			remainder = (remainder*10 + int(c-'0')) % 97
		}
	}
	return remainder == 1
}
