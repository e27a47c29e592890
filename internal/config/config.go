// Package config declares the CLI surface: global flags plus one struct
// per command, wired together for kong.
package config

import (
	"github.com/Alia5/CONDUIT/internal/cmd"
)

// LogConfig holds the global logging flags shared by every command.
type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"CONDUIT_LOG_LEVEL"`
	File    string `help:"Log file path (stdout when empty)" env:"CONDUIT_LOG_FILE"`
	RawFile string `help:"Raw feed traffic log file" env:"CONDUIT_LOG_RAW_FILE"`
}

// CLI is the root command structure parsed by kong.
type CLI struct {
	Log        LogConfig `embed:"" prefix:"log-"`
	ConfigPath string    `name:"config" help:"Configuration file path" type:"path"`

	Server    cmd.Server        `cmd:"" help:"Run the CONDUIT feed server"`
	Events    cmd.Events        `cmd:"" help:"Subscribe to a running server and print events as JSON lines"`
	Replay    cmd.Replay        `cmd:"" help:"Play a snapshot recording through the pipeline offline"`
	Probe     cmd.Probe         `cmd:"" help:"Poll local joystick devices and print pipeline events"`
	Tap       cmd.Tap           `cmd:"" help:"Relay feed traffic between a client and a server, logging decoded frames"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration file utilities"`
	Install   cmd.Install       `cmd:"" help:"Install the server as a system service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the installed system service"`
}
