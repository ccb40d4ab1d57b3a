package snmp

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosnmp/gosnmp"
)

// Format selects how a PDU value is rendered.
type Format int

const (
	FormatInt     Format = iota + 1 // integers, counters, gauges, timeticks
	FormatHex                       // lowercase hex of the octets
	FormatBin                       // raw octets
	FormatStr                       // octets as text
	FormatPreview                   // text when printable, colon-hex otherwise
	FormatAny                       // UTF-8 when valid, "0x"+hex otherwise
	FormatMAC                       // octets as lowercase colon-hex
	FormatIPv4                      // IpAddress as dotted quad
)

var formatNames = map[Format]string{
	FormatInt:     "int",
	FormatHex:     "hex",
	FormatBin:     "bin",
	FormatStr:     "str",
	FormatPreview: "preview",
	FormatAny:     "any",
	FormatMAC:     "mac",
	FormatIPv4:    "ipv4",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

// ParseFormat maps a format name to its Format.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown value format %q", name)
}

// Value is a decoded PDU value. Int is set for FormatInt, Raw for FormatBin;
// every format sets Text.
type Value struct {
	Format Format
	Int    int64
	Text   string
	Raw    []byte
}

func (v Value) String() string {
	return v.Text
}

// Decode renders a PDU value in the requested format. An unknown format is
// a caller bug and panics.
func Decode(pdu gosnmp.SnmpPDU, f Format) Value {
	v := Value{Format: f}

	switch f {
	case FormatInt:
		v.Int = gosnmp.ToBigInt(pdu.Value).Int64()
		v.Text = strconv.FormatInt(v.Int, 10)
	case FormatHex:
		v.Text = hex.EncodeToString(pduOctets(pdu))
	case FormatBin:
		v.Raw = pduOctets(pdu)
		v.Text = string(v.Raw)
	case FormatStr:
		v.Text = strings.ToValidUTF8(string(pduOctets(pdu)), "\uFFFD")
	case FormatPreview:
		b := pduOctets(pdu)
		if isPrintable(b) {
			v.Text = string(b)
		} else {
			v.Text = FormatMACBytes(b)
		}
	case FormatAny:
		b := pduOctets(pdu)
		if utf8.Valid(b) {
			v.Text = string(b)
		} else {
			v.Text = "0x" + hex.EncodeToString(b)
		}
	case FormatMAC:
		v.Text = FormatMACBytes(pduOctets(pdu))
	case FormatIPv4:
		v.Text = pduIPv4(pdu)
	default:
		panic(fmt.Sprintf("snmp: unknown value format %d", int(f)))
	}

	return v
}

// pduOctets returns the value as bytes. IpAddress values arrive from gosnmp
// as dotted strings and are converted back to their four octets.
func pduOctets(pdu gosnmp.SnmpPDU) []byte {
	switch val := pdu.Value.(type) {
	case []byte:
		return val
	case string:
		if pdu.Type == gosnmp.IPAddress {
			if addr, err := netip.ParseAddr(val); err == nil && addr.Is4() {
				a := addr.As4()
				return a[:]
			}
		}
		return []byte(val)
	case nil:
		return nil
	default:
		return []byte(fmt.Sprint(val))
	}
}

func pduIPv4(pdu gosnmp.SnmpPDU) string {
	switch val := pdu.Value.(type) {
	case string:
		if addr, err := netip.ParseAddr(val); err == nil {
			return addr.String()
		}
		return val
	case []byte:
		if len(val) == 4 {
			return netip.AddrFrom4([4]byte(val)).String()
		}
		return FormatMACBytes(val)
	default:
		return ""
	}
}

func isPrintable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
