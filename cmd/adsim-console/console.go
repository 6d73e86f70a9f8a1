package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/adsim-project/adsim-go/pkg/interaction"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

// Console is the interactive command loop of adsim-console.
type Console struct {
	client *interaction.Client
	out    io.Writer

	mu      sync.Mutex
	handles map[uint32]string
}

// NewConsole creates a console writing to out. Notifications pushed by the
// device are printed as they arrive.
func NewConsole(client *interaction.Client, out io.Writer) *Console {
	c := &Console{
		client:  client,
		out:     out,
		handles: make(map[uint32]string),
	}
	client.SetNotificationHandler(c.printNotification)
	return c
}

// Run reads commands from a readline prompt until quit, EOF, ctx
// cancellation or loss of the connection.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "adsim> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	c.out = rl.Stdout()
	c.printHelp()

	go func() {
		select {
		case <-c.client.Done():
			fmt.Fprintln(rl.Stderr(), "connection closed")
			rl.Close()
		case <-ctx.Done():
			rl.Close()
		}
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		if quit := c.Execute(ctx, line); quit {
			return nil
		}
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("info"),
		readline.PcItem("state"),
		readline.PcItem("read"),
		readline.PcItem("write"),
		readline.PcItem("rw"),
		readline.PcItem("control"),
		readline.PcItem("sub"),
		readline.PcItem("unsub"),
		readline.PcItem("subs"),
		readline.PcItem("raw"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "info", "i":
		err = c.cmdInfo(ctx)
	case "state":
		err = c.cmdState(ctx)
	case "read", "r":
		err = c.cmdRead(ctx, args)
	case "write", "w":
		err = c.cmdWrite(ctx, args)
	case "rw":
		err = c.cmdReadWrite(ctx, args)
	case "control":
		err = c.cmdControl(ctx, args)
	case "sub", "subscribe":
		err = c.cmdSubscribe(ctx, args)
	case "unsub", "unsubscribe":
		err = c.cmdUnsubscribe(ctx, args)
	case "subs":
		c.cmdSubscriptions()
	case "raw":
		err = c.cmdRaw(ctx, args)
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
ADSim Console Commands:
  Device:
    info                           - Read device name and version
    state                          - Read controller state
    control [hex]                  - Send a state change request

  Values:
    read <module> <sensor>         - Read a sensor value
    write <module> <sensor> <v>    - Overwrite a sensor value
    rw <module> <sensor> <v>       - Read a sensor value (write data is ignored)

  Notifications:
    sub <module> <sensor> [cycle]  - Subscribe (cycle e.g. 500ms, default 1s)
    unsub <handle>                 - Cancel a subscription
    subs                           - List subscriptions of this session

  Other:
    raw <command> [module sensor]  - Send a request with a raw command number
    help                           - Show this help
    quit                           - Exit console`)
}

func (c *Console) cmdInfo(ctx context.Context) error {
	info, err := c.client.ReadDeviceInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %d.%d.%d\n", info.Name, info.Major, info.Minor, info.Build)
	return nil
}

func (c *Console) cmdState(ctx context.Context) error {
	state, err := c.client.ReadState(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "ADS state: %s, device state: %d\n", state.AdsState, state.DeviceState)
	return nil
}

func (c *Console) cmdRead(ctx context.Context, args []string) error {
	module, sensor, err := parseAddress(args, 2)
	if err != nil {
		return err
	}
	v, err := c.client.Read(ctx, module, sensor)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d/%d = %g\n", module, sensor, v)
	return nil
}

func (c *Console) cmdWrite(ctx context.Context, args []string) error {
	module, sensor, err := parseAddress(args, 3)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[2])
	}
	if err := c.client.Write(ctx, module, sensor, v); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d/%d <- %g\n", module, sensor, v)
	return nil
}

func (c *Console) cmdReadWrite(ctx context.Context, args []string) error {
	module, sensor, err := parseAddress(args, 3)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[2])
	}
	got, err := c.client.ReadWrite(ctx, module, sensor, v)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d/%d = %g\n", module, sensor, got)
	return nil
}

func (c *Console) cmdControl(ctx context.Context, args []string) error {
	var data []byte
	if len(args) > 0 {
		var err error
		data, err = hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("invalid hex payload %q", args[0])
		}
	}
	if err := c.client.WriteControl(ctx, data); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "OK")
	return nil
}

func (c *Console) cmdSubscribe(ctx context.Context, args []string) error {
	module, sensor, err := parseAddress(args, 2)
	if err != nil {
		return err
	}
	var cycle time.Duration
	if len(args) > 2 {
		cycle, err = time.ParseDuration(args[2])
		if err != nil || cycle < 0 {
			return fmt.Errorf("invalid cycle time %q", args[2])
		}
	}

	handle, err := c.client.AddNotification(ctx, module, sensor, cycle)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.handles[handle] = fmt.Sprintf("%d/%d", module, sensor)
	c.mu.Unlock()

	fmt.Fprintf(c.out, "Subscribed %d/%d (handle %d)\n", module, sensor, handle)
	return nil
}

func (c *Console) cmdUnsubscribe(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: unsub <handle>")
	}
	h, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid handle %q", args[0])
	}
	handle := uint32(h)

	if err := c.client.DeleteNotification(ctx, handle); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.handles, handle)
	c.mu.Unlock()

	fmt.Fprintf(c.out, "Unsubscribed handle %d\n", handle)
	return nil
}

func (c *Console) cmdSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.handles) == 0 {
		fmt.Fprintln(c.out, "No subscriptions")
		return
	}
	handles := make([]uint32, 0, len(c.handles))
	for h := range c.handles {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	for _, h := range handles {
		fmt.Fprintf(c.out, "  %4d  %s\n", h, c.handles[h])
	}
}

func (c *Console) cmdRaw(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: raw <command> [module sensor]")
	}
	n, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil {
		return fmt.Errorf("invalid command %q", args[0])
	}
	req := &wire.Request{Command: wire.Command(n)}
	if len(args) >= 3 {
		module, sensor, err := parseAddress(args[1:], 2)
		if err != nil {
			return err
		}
		req.Module, req.Sensor = module, sensor
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s (0x%X)\n", resp.Command, resp.Status, uint16(resp.Status))
	return nil
}

func (c *Console) printNotification(n *wire.Notification) {
	fmt.Fprintf(c.out, "[%s] handle %d  %d/%d = %g\n",
		n.Timestamp.Format("15:04:05.000"), n.Handle, n.Module, n.Sensor, n.Value())
}

// parseAddress parses the leading "<module> <sensor>" arguments and checks
// that at least want arguments are present.
func parseAddress(args []string, want int) (uint16, uint16, error) {
	if len(args) < want {
		return 0, 0, fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}
	module, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid module %q", args[0])
	}
	sensor, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sensor %q", args[1])
	}
	return uint16(module), uint16(sensor), nil
}
