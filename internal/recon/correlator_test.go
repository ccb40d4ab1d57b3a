package recon

import (
	"net/netip"
	"reflect"
	"strings"
	"testing"

	"github.com/HerbHall/zonemap/pkg/models"
)

func binding(ifIndex int, ip, mask string) models.SubnetBinding {
	return models.SubnetBinding{IfIndex: ifIndex, IP: netip.MustParseAddr(ip), Mask: netip.MustParseAddr(mask)}
}

func TestRoutedSubnets(t *testing.T) {
	interfaces := []models.Interface{
		{Index: 1, Name: "GigabitEthernet0/1"},
		{Index: 10, Name: "Vlan10"},
		{Index: 20, Name: "Vlan20"},
	}
	bindings := []models.SubnetBinding{
		binding(20, "10.20.0.1", "255.255.255.0"),
		binding(10, "10.10.0.1", "255.255.255.0"),
		binding(10, "10.10.0.2", "255.255.255.0"), // same subnet twice
		binding(20, "10.20.8.1", "255.255.252.0"),
		binding(1, "192.168.255.1", "255.255.255.252"), // not routed
		binding(99, "10.99.0.1", "255.255.255.0"),      // unnamed interface
		binding(10, "10.11.0.1", "255.0.255.0"),        // non-contiguous mask
	}

	got := RoutedSubnets(bindings, interfaces, func(name string) bool {
		return strings.HasPrefix(name, "Vlan")
	})

	want := []netip.Prefix{
		netip.MustParsePrefix("10.10.0.0/24"),
		netip.MustParsePrefix("10.20.0.0/24"),
		netip.MustParsePrefix("10.20.8.0/22"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RoutedSubnets = %v, want %v", got, want)
	}
}

func TestRoutedSubnets_TwoMasksOneInterface(t *testing.T) {
	interfaces := []models.Interface{{Index: 42, Name: "Vlan20"}}
	bindings := []models.SubnetBinding{
		binding(42, "10.20.0.1", "255.255.255.0"),
		binding(42, "10.30.0.1", "255.255.255.0"),
	}

	got := RoutedSubnets(bindings, interfaces, DefaultConfig().Discovery.isRouted)
	if len(got) != 2 {
		t.Errorf("RoutedSubnets = %v, want two subnets", got)
	}
}

func TestResolveForwarding(t *testing.T) {
	fdb := []models.FDBEntry{
		{MAC: "aa:bb:cc:dd:ee:ff", BridgePort: 5},
		{MAC: "00:11:22:33:44:55", BridgePort: 9},
	}
	ports := map[int]int{5: 101}

	got := ResolveForwarding(fdb, ports)
	want := []models.MACBinding{
		{MAC: "aa:bb:cc:dd:ee:ff", IfIndex: 101},
		{MAC: "00:11:22:33:44:55", IfIndex: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveForwarding = %v, want %v", got, want)
	}
}

func TestMACsByInterface_SingleEntry(t *testing.T) {
	resolved := ResolveForwarding(
		[]models.FDBEntry{{MAC: "aa:bb:cc:dd:ee:ff", BridgePort: 5}},
		map[int]int{5: 101},
	)

	got := MACsByInterface(resolved)
	want := map[int][]string{101: {"aa:bb:cc:dd:ee:ff"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MACsByInterface = %v, want %v", got, want)
	}
}

func TestNameForwarding(t *testing.T) {
	interfaces := []models.Interface{
		{Index: 101, Name: "GigabitEthernet1/0/1"},
		{Index: 102, Name: "GigabitEthernet1/0/2"},
	}
	resolved := []models.MACBinding{
		{MAC: "aa:bb:cc:dd:ee:ff", IfIndex: 101},
		{MAC: "00:00:5e:00:01:01", IfIndex: 101},
		{MAC: "00:11:22:33:44:55", IfIndex: 0},
		{MAC: "66:77:88:99:aa:bb", IfIndex: 500},
	}

	got := NameForwarding(resolved, interfaces)
	want := map[string][]string{
		"GigabitEthernet1/0/1": {"00:00:5e:00:01:01", "aa:bb:cc:dd:ee:ff"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NameForwarding = %v, want %v", got, want)
	}
}

func TestTruncateDeviceID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"core-gw1.example.com", "core-gw1"},
		{"dist-sw2(FOC1234X0AB)", "dist-sw2"},
		{"edge(ABC).lab", "edge"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := TruncateDeviceID(tt.id); got != tt.want {
				t.Errorf("TruncateDeviceID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestGroupNeighbors(t *testing.T) {
	interfaces := []models.Interface{{Index: 1, Name: "Gi0/1"}, {Index: 2, Name: "Gi0/2"}}
	neighbors := []models.CDPNeighbor{
		{IfIndex: 1, DeviceID: "sw-b", RemotePort: "Gi1/0/1"},
		{IfIndex: 1, DeviceID: "sw-a", RemotePort: "Gi1/0/2"},
		{IfIndex: 2, DeviceID: "phone", RemotePort: "Port 1"},
		{IfIndex: 7, DeviceID: "ghost", RemotePort: "Gi9/9"},
	}

	got := GroupNeighbors(neighbors, interfaces)
	if len(got) != 2 {
		t.Fatalf("GroupNeighbors has %d interfaces, want 2", len(got))
	}
	if got["Gi0/1"][0].DeviceID != "sw-a" || got["Gi0/1"][1].DeviceID != "sw-b" {
		t.Errorf("Gi0/1 neighbors = %v, want sw-a then sw-b", got["Gi0/1"])
	}
	if _, ok := got["Gi0/7"]; ok {
		t.Error("neighbor on unnamed interface was kept")
	}
}
