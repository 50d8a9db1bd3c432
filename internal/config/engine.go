package config

import (
	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/orchestrator"
	"github.com/nidhogg/deskpet/internal/trigger"
)

// Engine maps the file configuration onto the orchestrator's.
func (c *Config) Engine() orchestrator.Config {
	t := c.Timings
	ec := orchestrator.DefaultConfig()
	ec.Display = geom.Size{W: c.Display.Width, H: c.Display.Height}
	ec.PrimarySize = geom.Size{W: c.Agent.Primary.Width, H: c.Agent.Primary.Height}
	ec.CloneSize = geom.Size{W: c.Agent.Clone.Width, H: c.Agent.Clone.Height}
	ec.CloneCap = c.Agent.CloneCap

	ec.Motion.ManualDwell = t.ManualDwell.Std()
	ec.Motion.ScatterEvery = t.Scatter.Std()

	ec.MoveEvery = t.Move.Std()
	ec.SpriteSwitch = t.SpriteSwitch.Std()
	ec.Speech = trigger.Band{Min: t.Speech.Min.Std(), Max: t.Speech.Max.Std()}
	ec.CloneSpeech = trigger.Band{Min: t.CloneSpeech.Min.Std(), Max: t.CloneSpeech.Max.Std()}
	ec.PollGrace = t.PollGrace.Std()
	ec.PollEvery = t.Poll.Std()
	ec.ActDelay = t.ActDelay.Std()
	ec.DisturbanceCooldown = t.DisturbanceCooldown.Std()
	ec.ShakeDuration = t.Shake.Std()
	ec.MischiefCooldown = t.MischiefCooldown.Std()
	ec.CloneGrace = t.CloneGrace.Std()
	ec.CloneEvery = t.CloneManage.Std()
	ec.CloneCooldown = t.CloneCooldown.Std()
	ec.HourlyEvery = t.Hourly.Std()
	return ec
}
