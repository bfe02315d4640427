package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/team3238/testdrive/pkg/drive"
	"github.com/team3238/testdrive/pkg/joystick"
	"github.com/team3238/testdrive/pkg/robot"
	"github.com/team3238/testdrive/pkg/spark"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	discoverWindow = 500 * time.Millisecond
	maxJoysticks   = 4
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("testdrive setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		os.Exit(1)
	}

	// Step 1: CAN interface and motor controllers
	cfg.CANInterface = chooseCANInterface(cfg.CANInterface)
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Motor controllers ━━━"))
	fmt.Println()
	if !checkControllers(cfg.CANInterface) {
		fmt.Println(warnStyle.Render("Some controllers did not answer. Check power and CAN ids with the REV client."))
	}

	// Step 2: joystick
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Joystick ━━━"))
	fmt.Println()
	cfg.JoystickPort = chooseJoystick(cfg.JoystickPort)

	// Step 3: dashboards
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Dashboard ━━━"))
	fmt.Println()
	askDashboards(cfg)

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("testdrive drive"))

	return nil
}

func canInterfaces() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		fmt.Printf("Error listing interfaces: %v\n", err)
		return nil
	}

	var names []string
	for _, iface := range ifaces {
		for _, prefix := range []string{"can", "vcan", "slcan"} {
			if strings.HasPrefix(iface.Name, prefix) {
				names = append(names, iface.Name)
				break
			}
		}
	}
	return names
}

func chooseCANInterface(current string) string {
	names := canInterfaces()
	if len(names) == 0 {
		fmt.Println("No CAN interfaces found.")
		fmt.Println("Bring one up first, e.g. 'ip link set can0 up type can bitrate 1000000'.")
		os.Exit(1)
	}
	if len(names) == 1 {
		fmt.Printf("Using CAN interface %s\n", names[0])
		return names[0]
	}

	choice := current
	var options []huh.Option[string]
	for _, name := range names {
		options = append(options, huh.NewOption(name, name))
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which CAN interface is the drivetrain on?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return choice
}

// checkControllers lists every expected controller and whether it answered.
func checkControllers(iface string) bool {
	bus, err := spark.Open(iface, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", iface, err)
		os.Exit(1)
	}
	defer bus.Close()

	fmt.Printf("Listening on %s for %s...\n\n", iface, discoverWindow)
	found, err := bus.Discover(context.Background(), discoverWindow)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(renderControllers(drive.DefaultTuning.Layout, found))
	return allPresent(drive.DefaultTuning.Layout, found)
}

func allPresent(layout robot.Layout, found []int) bool {
	for _, id := range layout.IDs() {
		if !contains(found, id) {
			return false
		}
	}
	return true
}

func contains(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// renderControllers shows expected roles first, then any unexpected ids.
func renderControllers(layout robot.Layout, found []int) string {
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	var rows [][]string
	var present []bool
	for _, role := range robot.AllRoles() {
		id := layout.ID(role)
		ok := contains(found, id)
		status := "missing"
		if ok {
			status = "ok"
		}
		follows := "-"
		if leader, isSecondary := role.Leader(); isSecondary {
			follows = leader.String()
		}
		rows = append(rows, []string{role.String(), fmt.Sprintf("%d", id), fmt.Sprintf("%v", role.Inverted()), follows, status})
		present = append(present, ok)
	}
	for _, id := range found {
		if _, known := layout.ByID(id); !known {
			rows = append(rows, []string{"(unassigned)", fmt.Sprintf("%d", id), "-", "-", "extra"})
			present = append(present, true)
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Role", "CAN id", "Inverted", "Follows", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 4 && row >= 0 && row < len(present) {
				if present[row] {
					return okStyle
				}
				return missingStyle
			}
			return tableCellStyle
		})
	return t.Render()
}

func chooseJoystick(current int) int {
	var options []huh.Option[int]
	sticks := map[int]*joystick.Device{}
	for port := 0; port < maxJoysticks; port++ {
		d, err := joystick.Open(port)
		if err != nil {
			continue
		}
		sticks[port] = d
		options = append(options, huh.NewOption(fmt.Sprintf("%d: %s", port, d.Name()), port))
	}
	defer func() {
		for _, d := range sticks {
			d.Close()
		}
	}()

	if len(options) == 0 {
		fmt.Println(warnStyle.Render("No joystick found. Plug one in before driving."))
		return current
	}

	port := current
	if len(options) == 1 {
		for p := range sticks {
			port = p
		}
		fmt.Printf("Using joystick %d: %s\n", port, sticks[port].Name())
	} else {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[int]().
					Title("Which joystick drives?").
					Options(options...).
					Value(&port),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			os.Exit(0)
		}
	}

	if d, ok := sticks[port]; ok {
		checkStickConventions(d)
	}
	return port
}

// checkStickConventions asks the operator to deflect the stick and verifies
// the sign conventions the mixer depends on.
func checkStickConventions(d *joystick.Device) {
	checks := []struct {
		prompt string
		axis   int
		want   float64 // sign
	}{
		{"Push the stick fully forward and hold it.", drive.DefaultTuning.Throttle.Index, -1},
		{"Twist the stick fully clockwise and hold it.", drive.DefaultTuning.Twist.Index, 1},
	}

	for _, c := range checks {
		waitForUser(c.prompt)
		v, err := d.RawAxis(c.axis)
		switch {
		case err != nil:
			fmt.Println(warnStyle.Render(fmt.Sprintf("  Could not read axis %d: %v", c.axis, err)))
		case v*c.want > 0.5:
			fmt.Println(successStyle.Render(fmt.Sprintf("  Axis %d reads %+.2f", c.axis, v)))
		default:
			fmt.Println(warnStyle.Render(fmt.Sprintf("  Axis %d reads %+.2f; expected %+.0f. This joystick will drive the wrong way.", c.axis, v, c.want)))
		}
	}
}

func askDashboards(cfg *robot.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("MQTT broker").
				Description("e.g. tcp://10.32.38.5:1883, empty to disable").
				Value(&cfg.Dashboard.MQTTBroker),
			huh.NewInput().
				Title("WebSocket dashboard address").
				Description("e.g. :5800, empty to disable").
				Value(&cfg.Dashboard.WebSocketListen),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}
