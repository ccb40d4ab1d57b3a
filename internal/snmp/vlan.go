package snmp

import (
	"fmt"
	"strconv"
)

// VLANStrategy derives the credential used for VLAN-scoped bridge table
// reads. The result is used for one walk and never stored on the Device.
type VLANStrategy interface {
	Community(base string, vlan int) string
}

// CommunityIndexing is Cisco community string indexing: "community@vlan".
type CommunityIndexing struct{}

func (CommunityIndexing) Community(base string, vlan int) string {
	return base + "@" + strconv.Itoa(vlan)
}

// GlobalFDB reuses the base community for every VLAN, for agents that
// expose one bridge table for all VLANs.
type GlobalFDB struct{}

func (GlobalFDB) Community(base string, _ int) string {
	return base
}

// ParseVLANStrategy maps a configuration name to a strategy.
func ParseVLANStrategy(name string) (VLANStrategy, error) {
	switch name {
	case "", "community_index":
		return CommunityIndexing{}, nil
	case "global":
		return GlobalFDB{}, nil
	default:
		return nil, fmt.Errorf("unknown vlan strategy %q: must be \"community_index\" or \"global\"", name)
	}
}
