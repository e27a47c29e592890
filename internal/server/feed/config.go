package feed

import "time"

// ServerConfig represents the server subcommand configuration.
type ServerConfig struct {
	Addr              string        `help:"Feed server listen address" default:":3250" env:"CONDUIT_FEED_ADDR"`
	FrameRate         int           `help:"Update loop frequency in frames per second" default:"60" env:"CONDUIT_FEED_FRAME_RATE"`
	SourceTimeout     time.Duration `help:"Time before auto-cleanup occurs when a source has no active sample stream" default:"5s" env:"CONDUIT_FEED_SOURCE_TIMEOUT"`
	ConnectionTimeout time.Duration `kong:"-"`
	Password          string        `kong:"-"`
}
