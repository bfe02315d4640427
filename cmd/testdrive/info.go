package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/team3238/testdrive/pkg/drive"
	"github.com/team3238/testdrive/pkg/spark"
)

type InfoCommand struct {
	Interface string        `short:"i" long:"interface" description:"CAN interface (default from config)"`
	Window    time.Duration `short:"w" long:"window" default:"500ms" description:"How long to listen for status frames"`
}

func (c *InfoCommand) Execute(args []string) error {
	iface := c.Interface
	if iface == "" {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		iface = cfg.CANInterface
	}

	bus, err := spark.Open(iface, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", iface, err)
		os.Exit(1)
	}
	defer bus.Close()

	found, err := bus.Discover(context.Background(), c.Window)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Motor controllers on %s", iface)))
	fmt.Println()
	if len(found) == 0 {
		fmt.Println("No controllers answered.")
		return nil
	}
	fmt.Println(renderControllers(drive.DefaultTuning.Layout, found))
	return nil
}
