package nodes

import (
	"strconv"
	"strings"
	"time"

	"github.com/Tsinling0525/journeyflow/model"
)

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, ok bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// atClock returns now's calendar day at hhmm, falling back to the default
// daily time when hhmm does not parse.
func atClock(now time.Time, hhmm string) time.Time {
	h, m, ok := ParseClock(hhmm)
	if !ok {
		h, m, _ = ParseClock(model.DefaultDailyTime)
	}
	y, mo, d := now.Date()
	return time.Date(y, mo, d, h, m, 0, 0, now.Location())
}

// DailyRelease computes an until-time release: today at hhmm plus days.
// With days == 0 an instant already reached rolls to tomorrow; with
// days > 0 the result is pushed one more day if it is still not after now.
func DailyRelease(now time.Time, hhmm string, days int) time.Time {
	target := atClock(now, hhmm)
	if days == 0 {
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		return target
	}
	target = target.AddDate(0, 0, days)
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// ScheduledSend is the release time of an Email send gate: today's send
// time, or tomorrow's once now is already past it.
func ScheduledSend(now time.Time, hhmm string) time.Time {
	target := atClock(now, hhmm)
	if now.After(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// WaitRelease is a pure function of the wait config and now.
func WaitRelease(now time.Time, cfg model.WaitConfig) time.Time {
	if cfg.Relative() {
		return now.Add(cfg.Duration())
	}
	return DailyRelease(now, cfg.UntilTime(), cfg.Days())
}
