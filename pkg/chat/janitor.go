// Copyright 2026 Handrail Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package chat

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/pkg/session"
)

// DefaultSessionTTL is how long an idle session survives before the janitor
// removes it.
const DefaultSessionTTL = 72 * time.Hour

// DefaultJanitorSchedule runs the sweep hourly.
const DefaultJanitorSchedule = "@hourly"

// Janitor periodically deletes idle sessions.
type Janitor struct {
	sessions session.Store
	logger   *zap.Logger
	ttl      time.Duration
	schedule string
	cron     *cron.Cron
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithSessionTTL overrides the idle cutoff.
func WithSessionTTL(ttl time.Duration) JanitorOption {
	return func(j *Janitor) { j.ttl = ttl }
}

// WithSchedule overrides the cron schedule.
func WithSchedule(spec string) JanitorOption {
	return func(j *Janitor) { j.schedule = spec }
}

// NewJanitor creates a session janitor.
func NewJanitor(sessions session.Store, logger *zap.Logger, opts ...JanitorOption) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Janitor{
		sessions: sessions,
		logger:   logger,
		ttl:      DefaultSessionTTL,
		schedule: DefaultJanitorSchedule,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start schedules the sweep and begins running it.
func (j *Janitor) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.sweep); err != nil {
		return err
	}
	j.cron = c
	c.Start()
	j.logger.Info("session janitor started",
		zap.String("schedule", j.schedule),
		zap.Duration("ttl", j.ttl))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Sweep deletes idle sessions once. Exposed for manual triggering.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-j.ttl)
	return j.sessions.DeleteIdle(ctx, cutoff)
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.Sweep(ctx)
	if err != nil {
		j.logger.Warn("session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Info("removed idle sessions", zap.Int("count", removed))
	}
}
