package orchestrator

import (
	"fmt"
	"time"

	"github.com/nidhogg/deskpet/internal/speech"
	"github.com/nidhogg/deskpet/internal/surface"
	"go.uber.org/zap"
)

// Period names the part of the day an hour falls in.
func Period(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18:
		return "evening"
	default:
		return "late_night"
	}
}

// checkHour chimes once at the top of every hour, in any mode.
func (e *Engine) checkHour(now time.Time) {
	local := now.In(e.cfg.Location)
	if local.Minute() != 0 || local.Hour() == e.lastHour {
		return
	}
	e.lastHour = local.Hour()
	period := Period(local.Hour())
	text := fmt.Sprintf("🕐 %s %02d:%02d\n%s",
		e.catalog.PeriodLabel(period), local.Hour(), local.Minute(),
		e.catalog.Greeting(period, e.mode))

	e.say(e.primary, text, surface.StyleAnnouncement, speech.AnnouncementDuration)
	e.logger.Info("hourly chime", zap.Int("hour", local.Hour()), zap.String("period", period))
}
