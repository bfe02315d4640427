package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"testdrive.json" description:"Configuration file"`
	LogFile string `long:"log-file" description:"Write logs to this file with rotation"`
	Verbose bool   `short:"v" long:"verbose" description:"Debug logging"`

	Setup SetupCommand `command:"setup" description:"Find the CAN interface, joystick and motor controllers"`
	Drive DriveCommand `command:"drive" alias:"teleop" description:"Run the drive program"`
	Info  InfoCommand  `command:"info" description:"List motor controllers on the CAN bus"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "testdrive - teleoperated drive for the four-motor test robot"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
