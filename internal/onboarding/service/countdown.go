package service

import (
	"context"
	"time"
)

// startCountdownLocked cancels any running countdown and starts a new one at the configured value.
func (c *Controller) startCountdownLocked() {
	c.stopCountdownLocked()
	c.state.ResendCountdownSeconds = c.cfg.ResendCountdownSeconds
	c.state.ResendAvailable = false
	id := c.countdownID
	c.cancelCountdown = c.scheduler.Every(time.Second, func() { c.tick(id) })
}

// stopCountdownLocked cancels the running countdown. Ticks already queued for it are dropped
// because the task id no longer matches.
func (c *Controller) stopCountdownLocked() {
	if c.cancelCountdown != nil {
		c.cancelCountdown()
		c.cancelCountdown = nil
	}
	c.countdownID++
}

func (c *Controller) tick(id uint64) {
	c.mu.Lock()
	if id != c.countdownID || c.cancelCountdown == nil {
		c.mu.Unlock()
		return
	}
	if c.state.ResendCountdownSeconds > 0 {
		c.state.ResendCountdownSeconds--
	}
	if c.state.ResendCountdownSeconds == 0 {
		c.state.ResendAvailable = true
		c.stopCountdownLocked()
	}
	c.mu.Unlock()
	c.render(context.Background())
}
