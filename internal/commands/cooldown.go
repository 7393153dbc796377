package commands

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked limiters above which fully
// recovered ones are dropped.
const pruneThreshold = 1024

// Cooldown limits each user to one use of a command per period.
type Cooldown struct {
	period time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{
		period:   period,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow records a use of command by userID at now. When the user is still
// cooling down it returns false and the time left.
func (c *Cooldown) Allow(command, userID string, now time.Time) (bool, time.Duration) {
	if c == nil || c.period <= 0 {
		return true, 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := command + "/" + userID
	lim, ok := c.limiters[key]
	if !ok {
		if len(c.limiters) >= pruneThreshold {
			c.pruneLocked(now)
		}
		lim = rate.NewLimiter(rate.Every(c.period), 1)
		c.limiters[key] = lim
	}

	if lim.AllowN(now, 1) {
		return true, 0
	}
	missing := 1 - lim.TokensAt(now)
	return false, time.Duration(missing * float64(c.period))
}

func (c *Cooldown) pruneLocked(now time.Time) {
	for key, lim := range c.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(c.limiters, key)
		}
	}
}
