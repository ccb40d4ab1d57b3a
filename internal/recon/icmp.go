package recon

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sweeper touches every host of a subnet so the gateway's ARP cache holds
// fresh entries before the forwarding tables are read. Replies are not
// collected.
type Sweeper interface {
	Sweep(ctx context.Context, subnet netip.Prefix) error
}

// maxInflightEchoes caps the pingers alive at once during one sweep. Each
// pinger owns its socket; the limiter, not this cap, bounds the send rate.
const maxInflightEchoes = 64

// ICMPSweeper sends one echo request to every host address of a subnet.
type ICMPSweeper struct {
	cfg    SweepConfig
	logger *zap.Logger
	send   func(ctx context.Context, ip netip.Addr)
}

// NewICMPSweeper creates a new ICMP sweeper.
func NewICMPSweeper(cfg SweepConfig, logger *zap.Logger) *ICMPSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ICMPSweeper{cfg: cfg, logger: logger}
	s.send = s.echo
	return s
}

// Sweep sends one echo per host, paced by a limiter private to this call.
// It returns once every echo has been sent and its timeout has elapsed, or
// when ctx is done.
func (s *ICMPSweeper) Sweep(ctx context.Context, subnet netip.Prefix) error {
	if !s.cfg.sweepable(subnet) {
		return fmt.Errorf("subnet %s exceeds the /%d sweep limit", subnet, 32-s.cfg.MaxPrefixBits)
	}
	hosts := expandSubnet(subnet)
	if len(hosts) == 0 {
		return nil
	}

	s.logger.Info("sweeping subnet",
		zap.String("subnet", subnet.String()),
		zap.Int("hosts", len(hosts)),
		zap.Float64("rate", s.cfg.Rate),
	)

	limiter := rate.NewLimiter(rate.Limit(s.cfg.Rate), 1)
	p := pool.New().WithMaxGoroutines(maxInflightEchoes)
	for _, ip := range hosts {
		if err := limiter.Wait(ctx); err != nil {
			p.Wait()
			return err
		}
		p.Go(func() { s.send(ctx, ip) })
	}
	p.Wait()
	return ctx.Err()
}

func (s *ICMPSweeper) echo(ctx context.Context, ip netip.Addr) {
	pinger, err := probing.NewPinger(ip.String())
	if err != nil {
		s.logger.Debug("failed to create pinger", zap.String("ip", ip.String()), zap.Error(err))
		return
	}
	pinger.Count = 1
	pinger.Timeout = s.timeout()
	pinger.SetPrivileged(s.cfg.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		s.logger.Debug("echo failed", zap.String("ip", ip.String()), zap.Error(err))
	}
}

func (s *ICMPSweeper) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return time.Second
}

// expandSubnet returns all host addresses in an IPv4 subnet, excluding the
// network and broadcast addresses. /31 and /32 yield their addresses as-is.
func expandSubnet(subnet netip.Prefix) []netip.Addr {
	subnet = subnet.Masked()
	if !subnet.Addr().Is4() {
		return nil
	}
	hostBits := 32 - subnet.Bits()
	if hostBits <= 1 {
		hosts := []netip.Addr{subnet.Addr()}
		if hostBits == 1 {
			hosts = append(hosts, subnet.Addr().Next())
		}
		return hosts
	}

	total := 1 << hostBits
	hosts := make([]netip.Addr, 0, total-2)
	ip := subnet.Addr().Next()
	for i := 1; i < total-1; i++ {
		hosts = append(hosts, ip)
		ip = ip.Next()
	}
	return hosts
}
