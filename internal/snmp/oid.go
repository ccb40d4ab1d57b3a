// Package snmp decodes SNMP table rows and walks tables over a pluggable
// transport. It knows nothing about specific MIBs; callers describe each
// table with a Table value.
package snmp

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Index arities for the common table index shapes.
const (
	ArityBridgePort = 1
	ArityIPv4       = 4
	ArityMAC        = 6
)

// normalizeOID strips the leading dot gosnmp puts on returned names.
func normalizeOID(oid string) string {
	return strings.TrimPrefix(oid, ".")
}

// CompareOID orders two OIDs numerically by sub-identifier. A leading dot
// is ignored; a prefix sorts before its extensions.
func CompareOID(a, b string) int {
	as := strings.Split(normalizeOID(a), ".")
	bs := strings.Split(normalizeOID(b), ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, _ := strconv.Atoi(as[i])
		y, _ := strconv.Atoi(bs[i])
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}

// SplitIndex checks that oid lives directly under the table prefix and
// returns its trailing arity sub-identifiers. ok is false when the OID is
// outside the table or the index has a different length; walkers treat
// that as the end of the table.
func SplitIndex(oid, prefix string, arity int) (index []int, ok bool) {
	o := normalizeOID(oid)
	p := normalizeOID(prefix)

	if !strings.HasPrefix(o, p+".") {
		return nil, false
	}

	parts := strings.Split(o[len(p)+1:], ".")
	if len(parts) != arity {
		return nil, false
	}

	index = make([]int, arity)
	for i, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, false
		}
		index[i] = n
	}
	return index, true
}

// LengthPrefixed extracts an n-element value from the end of an index whose
// encoding carries its own length sub-identifier (len.b1...bn), as used by
// the IP-MIB address tables. ok is false when the length does not match.
func LengthPrefixed(index []int, n int) ([]int, bool) {
	if len(index) < n+1 || index[len(index)-n-1] != n {
		return nil, false
	}
	return index[len(index)-n:], true
}

// DecodeIPv4 reads a four sub-identifier index as an IPv4 address.
func DecodeIPv4(index []int) (netip.Addr, bool) {
	b, ok := octets(index, ArityIPv4)
	if !ok {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(b)), true
}

// DecodeMAC reads a six sub-identifier index as a MAC address in lowercase
// colon-separated form.
func DecodeMAC(index []int) (string, bool) {
	b, ok := octets(index, ArityMAC)
	if !ok {
		return "", false
	}
	return FormatMACBytes(b), true
}

// DecodeBridgeID reads a single sub-identifier index as a bridge port number.
func DecodeBridgeID(index []int) (int, bool) {
	if len(index) != ArityBridgePort {
		return 0, false
	}
	return index[0], true
}

// EncodeMACIndex is the inverse of DecodeMAC.
func EncodeMACIndex(mac string) ([]int, error) {
	parts := strings.Split(mac, ":")
	if len(parts) != ArityMAC {
		return nil, fmt.Errorf("invalid MAC %q", mac)
	}
	index := make([]int, ArityMAC)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid MAC %q: %w", mac, err)
		}
		index[i] = int(n)
	}
	return index, nil
}

// JoinIndex renders an index back into dotted form.
func JoinIndex(index []int) string {
	parts := make([]string, len(index))
	for i, n := range index {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// FormatMACBytes renders octets as lowercase colon-separated hex.
func FormatMACBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*3-1)
	for i, v := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, hexDigits[v>>4], hexDigits[v&0x0f])
	}
	return string(out)
}

func octets(index []int, n int) ([]byte, bool) {
	if len(index) != n {
		return nil, false
	}
	b := make([]byte, n)
	for i, v := range index {
		if v < 0 || v > 255 {
			return nil, false
		}
		b[i] = byte(v)
	}
	return b, true
}
