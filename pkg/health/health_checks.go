package health

import "time"

// Feed is the event feed a mirror depends on. *events.Subscriber
// implements it.
type Feed interface {
	Applied() uint64
	Lost() uint64
}

// FeedCheck reports on the event feed. A feed that has applied nothing is
// degraded; one that has lost events is degraded with the loss count.
func FeedCheck(feed Feed) CheckFunc {
	return func() Check {
		check := Check{Name: "feed", Details: make(map[string]any)}

		applied, lost := feed.Applied(), feed.Lost()
		check.Details["applied"] = applied
		check.Details["lost"] = lost

		switch {
		case applied == 0:
			check.Status = StatusDegraded
			check.Message = "No events received yet"
		case lost > 0:
			check.Status = StatusDegraded
			check.Message = "Events lost in transit"
		default:
			check.Status = StatusHealthy
			check.Message = "Feed healthy"
		}
		return check
	}
}

// FeedReadyCheck is healthy once the feed has applied at least one event.
func FeedReadyCheck(feed Feed) CheckFunc {
	return func() Check {
		if feed.Applied() == 0 {
			return Check{Name: "feed", Status: StatusUnhealthy, Message: "Waiting for first event"}
		}
		return Check{Name: "feed", Status: StatusHealthy, Message: "Receiving events"}
	}
}

// SchedulerCheck is unhealthy once the scheduler has been closed.
func SchedulerCheck(closed func() bool) CheckFunc {
	return func() Check {
		if closed() {
			return Check{Name: "scheduler", Status: StatusUnhealthy, Message: "Scheduler closed"}
		}
		return Check{Name: "scheduler", Status: StatusHealthy, Message: "Accepting jobs"}
	}
}

// CacheCheck reports the cache size against the number of links it should
// hold. Fewer entries than links means geometry is still being computed.
func CacheCheck(entries, links func() int) CheckFunc {
	return func() Check {
		check := Check{Name: "cache", Details: make(map[string]any)}

		e, l := entries(), links()
		check.Details["entries"] = e
		check.Details["links"] = l

		if e < l {
			check.Status = StatusDegraded
			check.Message = "Geometry catching up"
		} else {
			check.Status = StatusHealthy
			check.Message = "Cache warm"
		}
		return check
	}
}

// NoticeCheck is degraded when geometry notices have been dropped by slow
// subscribers.
func NoticeCheck(dropped func() uint64) CheckFunc {
	return func() Check {
		check := Check{Name: "notices", Details: make(map[string]any)}

		d := dropped()
		check.Details["dropped"] = d
		if d > 0 {
			check.Status = StatusDegraded
			check.Message = "Notices dropped"
		} else {
			check.Status = StatusHealthy
		}
		return check
	}
}

// StaleCheck is degraded when last reports a time older than maxAge.
func StaleCheck(name string, last func() time.Time, maxAge time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: name, Details: make(map[string]any)}

		t := last()
		if t.IsZero() {
			check.Status = StatusDegraded
			check.Message = "Never updated"
			return check
		}
		age := time.Since(t)
		check.Details["age"] = age.String()
		if age > maxAge {
			check.Status = StatusDegraded
			check.Message = "No update for " + age.Round(time.Second).String()
		} else {
			check.Status = StatusHealthy
		}
		return check
	}
}
