// Package address classifies raw log-field text as an IPv4, IPv6, or MAC-48
// network address and emits a canonical string form for each.
//
// The parser never fails: an invalid candidate is simply not emitted. It is
// deterministic and its canonicalization is idempotent (canon(canon(x)) ==
// canon(x)) by construction, since canonical output is always itself a valid
// input that re-parses to the same bytes.
package address

import (
	"strconv"
	"strings"
)

// Type identifies the kind of address a candidate parsed as.
type Type int

const (
	// None indicates the candidate did not validate as any known type.
	None Type = iota
	IPv4
	IPv6
	MAC
)

func (t Type) String() string {
	switch t {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	case MAC:
		return "MAC"
	default:
		return "none"
	}
}

// Options controls the strictness of the parser. The zero value is the
// default, permissive configuration.
type Options struct {
	// StrictIPv4 rejects octets with leading zeros ("010") instead of
	// accepting and normalizing them. Default (false) accepts them.
	StrictIPv4 bool
}

// maxCandidateLen bounds how long a run of type-legal characters we will
// attempt to validate; anything longer is rejected outright rather than
// walked byte by byte forever.
const maxCandidateLen = 45 // longest legal IPv6 literal with embedded IPv4

// Parse classifies a single candidate token (already isolated by the
// tokenizer, i.e. one field's raw text with its tag prefix stripped) and
// returns its type and canonical string form. ok is false if the candidate
// does not validate as any address type.
func Parse(s string, opt Options) (typ Type, canonical string, ok bool) {
	if len(s) == 0 || len(s) > maxCandidateLen {
		return None, "", false
	}
	// MAC takes priority over IPv6 at the same start when both could
	// validate: its shape is strictly fixed at 17 bytes, so try it first.
	if c, ok := parseMAC(s); ok {
		return MAC, c, true
	}
	if strings.IndexByte(s, '.') >= 0 && strings.IndexByte(s, ':') < 0 {
		if c, ok := parseIPv4(s, opt); ok {
			return IPv4, c, true
		}
	}
	if strings.IndexByte(s, ':') >= 0 {
		if c, ok := parseIPv6(s, opt); ok {
			return IPv6, c, true
		}
	}
	return None, "", false
}

func parseIPv4(s string, opt Options) (string, bool) {
	octets, ok := splitIPv4Octets(s, opt)
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.Grow(15)
	for i, o := range octets {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(o))
	}
	return b.String(), true
}

// splitIPv4Octets validates "d.d.d.d" with 0-255 decimal octets.
func splitIPv4Octets(s string, opt Options) ([4]int, bool) {
	var out [4]int
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return out, false
		}
		if len(p) > 1 && p[0] == '0' && opt.StrictIPv4 {
			return out, false
		}
		v := 0
		for _, c := range []byte(p) {
			if c < '0' || c > '9' {
				return out, false
			}
			v = v*10 + int(c-'0')
		}
		if v > 255 {
			return out, false
		}
		out[i] = v
	}
	return out, true
}

// parseMAC validates six 2-hex-digit octets separated by a single
// consistent ':' or '-' separator. Mixed separators are rejected.
func parseMAC(s string) (string, bool) {
	if len(s) != 17 {
		return "", false
	}
	sep := s[2]
	if sep != ':' && sep != '-' {
		return "", false
	}
	var out [17]byte
	for i := 0; i < 6; i++ {
		off := i * 3
		if i > 0 {
			if s[off-1] != sep {
				return "", false
			}
		}
		hi, ok1 := hexVal(s[off])
		lo, ok2 := hexVal(s[off+1])
		if !ok1 || !ok2 {
			return "", false
		}
		out[off] = lowerHex(hi)
		out[off+1] = lowerHex(lo)
		if i < 5 {
			out[off+2] = ':'
		}
	}
	return string(out[:]), true
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c, true
	case c >= 'a' && c <= 'f':
		return c, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 'a', true
	default:
		return 0, false
	}
}

func lowerHex(c byte) byte {
	if c >= 'A' && c <= 'F' {
		return c - 'A' + 'a'
	}
	return c
}

// parseIPv6 validates 1-8 colon-separated groups of 1-4 hex digits, with at
// most one "::" compression and an optional embedded IPv4 in the last 32
// bits when preceded by >=6 groups. Canonicalization here is intentionally
// weak (lowercase, "::" preserved as given) rather than a full
// zero-compression-normalizing implementation: only byte-equal inputs need
// to yield byte-equal canonical outputs, which a lowercase-and-validate
// pass satisfies without the complexity of a re-compressing canonicalizer.
func parseIPv6(s string, opt Options) (string, bool) {
	if strings.Count(s, "::") > 1 {
		return "", false
	}
	if strings.HasPrefix(s, ":") && !strings.HasPrefix(s, "::") {
		return "", false
	}
	if strings.HasSuffix(s, ":") && !strings.HasSuffix(s, "::") {
		return "", false
	}

	hasCompression := strings.Contains(s, "::")
	var left, right string
	if hasCompression {
		idx := strings.Index(s, "::")
		left, right = s[:idx], s[idx+2:]
	} else {
		left = s
	}

	leftGroups := splitNonEmpty(left, ':')
	rightGroups := splitNonEmpty(right, ':')

	embeddedIPv4 := false
	if n := len(rightGroups); n > 0 && strings.Contains(rightGroups[n-1], ".") {
		embeddedIPv4 = true
	} else if n := len(leftGroups); !hasCompression && n > 0 && strings.Contains(leftGroups[n-1], ".") {
		embeddedIPv4 = true
	}

	// groupCount counts hex groups only; an embedded IPv4 occupies the
	// space of two hex groups but is carried as one string element.
	groupCount := len(leftGroups) + len(rightGroups)
	if embeddedIPv4 {
		groupCount++
	}
	if hasCompression {
		if groupCount >= 8 {
			return "", false
		}
	} else if groupCount != 8 {
		return "", false
	}

	if embeddedIPv4 {
		var v4 string
		if hasCompression {
			if len(rightGroups) == 0 {
				return "", false
			}
			v4 = rightGroups[len(rightGroups)-1]
			rightGroups = rightGroups[:len(rightGroups)-1]
		} else {
			v4 = leftGroups[len(leftGroups)-1]
			leftGroups = leftGroups[:len(leftGroups)-1]
		}
		if len(leftGroups) < 6 && !hasCompression {
			return "", false
		}
		if _, ok := splitIPv4Octets(v4, opt); !ok {
			return "", false
		}
		for _, g := range leftGroups {
			if !validHexGroup(g) {
				return "", false
			}
		}
		for _, g := range rightGroups {
			if !validHexGroup(g) {
				return "", false
			}
		}
		canon, _ := parseIPv4(v4, opt)
		var b strings.Builder
		writeGroups(&b, leftGroups)
		if hasCompression {
			b.WriteString("::")
			writeGroups(&b, rightGroups)
			if len(rightGroups) > 0 {
				b.WriteByte(':')
			}
		} else if len(leftGroups) > 0 {
			b.WriteByte(':')
		}
		b.WriteString(canon)
		return b.String(), true
	}

	for _, g := range leftGroups {
		if !validHexGroup(g) {
			return "", false
		}
	}
	for _, g := range rightGroups {
		if !validHexGroup(g) {
			return "", false
		}
	}

	var b strings.Builder
	writeGroups(&b, leftGroups)
	if hasCompression {
		b.WriteString("::")
		writeGroups(&b, rightGroups)
	}
	return b.String(), true
}

func writeGroups(b *strings.Builder, groups []string) {
	for i, g := range groups {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strings.ToLower(g))
	}
}

func validHexGroup(g string) bool {
	if len(g) == 0 || len(g) > 4 {
		return false
	}
	for _, c := range []byte(g) {
		if _, ok := hexVal(c); !ok {
			return false
		}
	}
	return true
}

func splitNonEmpty(s string, sep byte) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, string(sep))
}
