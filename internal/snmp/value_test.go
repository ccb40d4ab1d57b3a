package snmp

import (
	"bytes"
	"testing"

	"github.com/gosnmp/gosnmp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		pdu      gosnmp.SnmpPDU
		format   Format
		wantText string
		wantInt  int64
	}{
		{"int", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 101}, FormatInt, "101", 101},
		{"counter32", gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: uint32(7)}, FormatInt, "7", 7},
		{"hex", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{0xde, 0xad}}, FormatHex, "dead", 0},
		{"str", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("GigabitEthernet0/1")}, FormatStr, "GigabitEthernet0/1", 0},
		{"str_invalid_utf8", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{'a', 0xff}}, FormatStr, "a\uFFFD", 0},
		{"preview_text", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("core-sw1")}, FormatPreview, "core-sw1", 0},
		{"preview_binary", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{0x00, 0x1a, 0x2b}}, FormatPreview, "00:1a:2b", 0},
		{"any_text", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("vlan10")}, FormatAny, "vlan10", 0},
		{"any_binary", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{0xc3, 0x28}}, FormatAny, "0xc328", 0},
		{"mac", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}}, FormatMAC, "aa:bb:cc:dd:ee:ff", 0},
		{"ipv4_string", gosnmp.SnmpPDU{Type: gosnmp.IPAddress, Value: "255.255.255.0"}, FormatIPv4, "255.255.255.0", 0},
		{"ipv4_bytes", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte{10, 0, 0, 1}}, FormatIPv4, "10.0.0.1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.pdu, tt.format)
			if got.Text != tt.wantText {
				t.Errorf("Decode(%v).Text = %q, want %q", tt.format, got.Text, tt.wantText)
			}
			if got.Int != tt.wantInt {
				t.Errorf("Decode(%v).Int = %d, want %d", tt.format, got.Int, tt.wantInt)
			}
			if got.Format != tt.format {
				t.Errorf("Decode(%v).Format = %v", tt.format, got.Format)
			}
		})
	}
}

func TestDecode_BinKeepsOctets(t *testing.T) {
	raw := []byte{0x00, 0xff, 0x10}
	got := Decode(gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: raw}, FormatBin)
	if !bytes.Equal(got.Raw, raw) {
		t.Errorf("Raw = %x, want %x", got.Raw, raw)
	}
}

func TestDecode_IPAddressAsHex(t *testing.T) {
	got := Decode(gosnmp.SnmpPDU{Type: gosnmp.IPAddress, Value: "10.0.0.1"}, FormatHex)
	if got.Text != "0a000001" {
		t.Errorf("Text = %q, want 0a000001", got.Text)
	}
}

func TestDecode_UnknownFormatPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown format")
		}
	}()
	Decode(gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 1}, Format(99))
}

func TestParseFormat(t *testing.T) {
	for f, name := range formatNames {
		got, err := ParseFormat(name)
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", name, got, err, f)
		}
	}
	if _, err := ParseFormat("numbers"); err == nil {
		t.Error("expected error for unknown format name")
	}
}
