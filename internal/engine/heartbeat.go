package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// fakeBag stands in for a message when the bot speaks unprompted.
func (e *Engine) fakeBag(now time.Time) *bag {
	names := append(e.users.Names(), "Somebody")
	return &bag{Name: names[e.intn(len(names))], Time: now}
}

// outburst says a random fact once the outburst time has passed.
func (e *Engine) outburst(ctx context.Context, now time.Time) string {
	if e.state.Outburst.IsZero() {
		e.refreshOutburst(now)
	}
	if now.Before(e.state.Outburst) {
		return ""
	}
	r := e.randomFact(ctx)
	if r.Code != Success {
		e.log.Warn("outburst failed", zap.Stringer("code", r.Code))
		return ""
	}
	e.refreshOutburst(now)
	return e.say(r, e.fakeBag(now))
}

// reminder says a fact of the reminder subject on the reminder day of the
// month, at most once per cooldown.
func (e *Engine) reminder(ctx context.Context, now time.Time) string {
	zone := time.FixedZone("local", e.cfg.Int("timezone")*3600)
	if !e.state.ReminderDue(now.In(zone).Day(), now) {
		return ""
	}
	facts, err := e.factQuery(ctx, e.state.Reminder.Subject, true)
	if err != nil {
		e.log.Debug("no reminder", zap.String("subject", e.state.Reminder.Subject), zap.Error(err))
		return ""
	}
	r := compileFact(facts[e.intn(len(facts))])
	e.state.LockReminder(now)
	return e.say(r, e.fakeBag(now))
}
