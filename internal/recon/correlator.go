package recon

import (
	"net/netip"
	"sort"

	"github.com/HerbHall/zonemap/pkg/models"
)

// RoutedSubnets returns the distinct subnets carried by bindings whose
// interface name satisfies isRouted, in address order. Bindings on
// interfaces with no name, or with an unusable mask, are skipped.
func RoutedSubnets(bindings []models.SubnetBinding, interfaces []models.Interface, isRouted func(string) bool) []netip.Prefix {
	names := interfaceNames(interfaces)
	seen := make(map[netip.Prefix]bool)
	var subnets []netip.Prefix
	for _, b := range bindings {
		name, ok := names[b.IfIndex]
		if !ok || !isRouted(name) {
			continue
		}
		p, ok := b.Prefix()
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		subnets = append(subnets, p)
	}
	SortPrefixes(subnets)
	return subnets
}

// SortPrefixes orders prefixes by address, then by length.
func SortPrefixes(prefixes []netip.Prefix) {
	sort.Slice(prefixes, func(i, j int) bool {
		if c := prefixes[i].Addr().Compare(prefixes[j].Addr()); c != 0 {
			return c < 0
		}
		return prefixes[i].Bits() < prefixes[j].Bits()
	})
}

// ResolveForwarding maps each forwarding entry's bridge port to an
// ifIndex. A port missing from bridgePorts resolves to ifIndex 0.
func ResolveForwarding(fdb []models.FDBEntry, bridgePorts map[int]int) []models.MACBinding {
	resolved := make([]models.MACBinding, 0, len(fdb))
	for _, e := range fdb {
		resolved = append(resolved, models.MACBinding{MAC: e.MAC, IfIndex: bridgePorts[e.BridgePort]})
	}
	return resolved
}

// MACsByInterface groups resolved MACs by ifIndex. Each list is sorted.
func MACsByInterface(bindings []models.MACBinding) map[int][]string {
	grouped := make(map[int][]string)
	for _, b := range bindings {
		grouped[b.IfIndex] = append(grouped[b.IfIndex], b.MAC)
	}
	for _, macs := range grouped {
		sort.Strings(macs)
	}
	return grouped
}

// NameForwarding groups resolved MACs by interface name. Entries whose
// ifIndex has no name, including the unresolved port 0, are dropped.
func NameForwarding(bindings []models.MACBinding, interfaces []models.Interface) map[string][]string {
	names := interfaceNames(interfaces)
	named := make(map[string][]string)
	for ifIndex, macs := range MACsByInterface(bindings) {
		name, ok := names[ifIndex]
		if !ok {
			continue
		}
		named[name] = append(named[name], macs...)
	}
	for _, macs := range named {
		sort.Strings(macs)
	}
	return named
}

func interfaceNames(interfaces []models.Interface) map[int]string {
	names := make(map[int]string, len(interfaces))
	for _, ifc := range interfaces {
		names[ifc.Index] = ifc.Name
	}
	return names
}
