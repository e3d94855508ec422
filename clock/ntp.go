package clock

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/mcsmanager/mcsm_bot/logger"
)

const (
	defaultServer   = "pool.ntp.org"
	defaultInterval = 30 * time.Minute
	defaultTimeout  = 5 * time.Second
)

// Config holds NTP clock configuration.
type Config struct {
	NTPEnabled  bool          `yaml:"ntp_enabled"`
	NTPServer   string        `yaml:"ntp_server"`
	NTPInterval time.Duration `yaml:"ntp_interval"`
}

// queryFunc matches ntp.QueryWithOptions so tests can stub the network.
type queryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPClock provides drift-corrected wall-clock time by periodically
// syncing with an NTP server. The inactivity scheduler reads it so that a
// host with a skewed clock still fires at the configured hour.
type NTPClock struct {
	server   string
	interval time.Duration
	timeout  time.Duration
	logger   logger.Logger
	query    queryFunc

	mu     sync.RWMutex
	offset time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// Params configures an NTPClock.
type Params struct {
	Config  Config
	Timeout time.Duration
	Logger  logger.Logger
}

// NewNTP creates an NTPClock.
func NewNTP(p Params) *NTPClock {
	c := &NTPClock{
		server:   p.Config.NTPServer,
		interval: p.Config.NTPInterval,
		timeout:  p.Timeout,
		logger:   logger.OrNop(p.Logger),
		query:    ntp.QueryWithOptions,
	}
	if c.server == "" {
		c.server = defaultServer
	}
	if c.interval <= 0 {
		c.interval = defaultInterval
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

// FromConfig returns an NTPClock when NTP is enabled and the system clock otherwise.
func FromConfig(cfg Config, log logger.Logger) Clock {
	if !cfg.NTPEnabled {
		return System()
	}
	return NewNTP(Params{Config: cfg, Logger: log})
}

// Now returns the current time adjusted by the NTP offset.
func (c *NTPClock) Now() time.Time {
	c.mu.RLock()
	off := c.offset
	c.mu.RUnlock()
	return time.Now().Add(off)
}

// Offset returns the current NTP offset.
func (c *NTPClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Start performs an initial sync and re-syncs on the configured interval
// until Stop is called or ctx ends.
func (c *NTPClock) Start(ctx context.Context) error {
	c.sync()

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop shuts down the background sync goroutine.
func (c *NTPClock) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
}

func (c *NTPClock) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sync()
		}
	}
}

func (c *NTPClock) sync() {
	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: c.timeout})
	if err != nil {
		c.logger.WarnW("ntp sync failed, keeping last offset", "server", c.server, "error", err)
		return
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.mu.Unlock()

	c.logger.DebugW("ntp sync", "server", c.server, "offset", resp.ClockOffset)
}
