package recon

// SNMP tables read during zone discovery.

// SNMPv2-MIB system group.
const (
	OIDSysName = "1.3.6.1.2.1.1.5.0"
)

// IF-MIB.
const (
	OIDIfDescr = "1.3.6.1.2.1.2.2.1.2"
	OIDIfAlias = "1.3.6.1.2.1.31.1.1.1.18"
)

// IP-MIB ipAddrTable (indexed by IPv4 address) and ipNetToMediaTable
// (indexed by ifIndex.IPv4).
const (
	OIDIPAdEntIfIndex          = "1.3.6.1.2.1.4.20.1.2"
	OIDIPAdEntNetMask          = "1.3.6.1.2.1.4.20.1.3"
	OIDIPNetToMediaPhysAddress = "1.3.6.1.2.1.4.22.1.2"
)

// CISCO-HSRP-MIB cHsrpGrpTable (indexed by ifIndex.group).
const (
	OIDHSRPVirtualIP    = "1.3.6.1.4.1.9.9.106.1.2.1.1.11"
	OIDHSRPStandbyState = "1.3.6.1.4.1.9.9.106.1.2.1.1.12"
)

// CISCO-CDP-MIB cdpCacheTable (indexed by ifIndex.deviceIndex).
const (
	OIDCDPCacheDeviceID   = "1.3.6.1.4.1.9.9.23.1.2.1.1.6"
	OIDCDPCacheDevicePort = "1.3.6.1.4.1.9.9.23.1.2.1.1.7"
)

// CISCO-VTP-MIB vtpVlanTable (indexed by managementDomain.vlan).
const (
	OIDVTPVlanState = "1.3.6.1.4.1.9.9.46.1.3.1.1.2"
	OIDVTPVlanType  = "1.3.6.1.4.1.9.9.46.1.3.1.1.3"
	OIDVTPVlanName  = "1.3.6.1.4.1.9.9.46.1.3.1.1.4"
)

// BRIDGE-MIB, read per VLAN context.
const (
	OIDDot1dBasePortIfIndex = "1.3.6.1.2.1.17.1.4.1.2"
	OIDDot1dTpFdbPort       = "1.3.6.1.2.1.17.4.3.1.2"
)

// Row values the readers filter on.
const (
	vtpVlanOperational = 1
	vtpVlanEthernet    = 1
)
