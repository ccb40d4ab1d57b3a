package recon

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/pkg/models"
)

// CDPNeighbors walks the cdpCacheDeviceId and cdpCacheDevicePort columns
// and joins them on their ifIndex.deviceIndex suffix. Returns an empty
// slice (not error) when the device does not run CDP.
func (c *SNMPCollector) CDPNeighbors(ctx context.Context, dev snmp.Device) ([]models.CDPNeighbor, error) {
	idRows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("cdpCacheDeviceId", OIDCDPCacheDeviceID, 2, snmp.FormatStr))
	if err != nil {
		return nil, err
	}
	if len(idRows) == 0 {
		return nil, nil
	}
	portRows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("cdpCacheDevicePort", OIDCDPCacheDevicePort, 2, snmp.FormatStr))
	if err != nil {
		return nil, err
	}

	ports := indexRows(portRows)
	neighbors := make([]models.CDPNeighbor, 0, len(idRows))
	for _, r := range idRows {
		neighbors = append(neighbors, models.CDPNeighbor{
			IfIndex:    r.Index[0],
			DeviceID:   TruncateDeviceID(r.Value.Text),
			RemotePort: ports[snmp.JoinIndex(r.Index)].Value.Text,
		})
	}

	c.logger.Debug("CDP neighbor discovery complete",
		zap.String("device", dev.String()),
		zap.Int("neighbors", len(neighbors)),
	)
	return neighbors, nil
}

// TruncateDeviceID cuts a CDP device id at its first "." or "(", dropping
// the domain suffix and the serial number some platforms append.
func TruncateDeviceID(id string) string {
	if i := strings.IndexAny(id, ".("); i >= 0 {
		return id[:i]
	}
	return id
}

// GroupNeighbors groups neighbors by the name of the local interface they
// were seen on. Neighbors on interfaces without a name are dropped.
func GroupNeighbors(neighbors []models.CDPNeighbor, interfaces []models.Interface) map[string][]models.CDPNeighbor {
	names := interfaceNames(interfaces)
	grouped := make(map[string][]models.CDPNeighbor)
	for _, n := range neighbors {
		name, ok := names[n.IfIndex]
		if !ok {
			continue
		}
		grouped[name] = append(grouped[name], n)
	}
	for _, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].DeviceID != list[j].DeviceID {
				return list[i].DeviceID < list[j].DeviceID
			}
			return list[i].RemotePort < list[j].RemotePort
		})
	}
	return grouped
}
