package cmd

import "time"

type Probe struct {
	Profiles  string        `help:"Channel mapping profile file (json/yaml/toml)" env:"CONDUIT_PROFILES"`
	FrameRate int           `help:"Snapshot polling rate in frames per second" default:"60"`
	List      bool          `help:"List detected joystick devices and exit"`
	Duration  time.Duration `help:"Stop after this long (0 runs until interrupted)"`
}
