// Package interactive provides the interactive command-line console for
// midi2-host.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
	"github.com/fountain-coach/midi2-go/pkg/midi1"
	"github.com/fountain-coach/midi2-go/pkg/pe"
	"github.com/fountain-coach/midi2-go/pkg/registry"
	"github.com/fountain-coach/midi2-go/pkg/transport"
	"github.com/fountain-coach/midi2-go/pkg/ump"
	"github.com/fountain-coach/midi2-go/pkg/vendor"
)

// Config wires a Console to the host.
type Config struct {
	// Hub is the loopback hub commands are delivered through.
	Hub *transport.Loopback

	// Registry is used for list and for resolving handler names.
	Registry *registry.Registry

	// Group is the UMP group commands are sent on.
	Group uint8
}

// Console handles interactive mode for midi2-host.
type Console struct {
	hub   *transport.Loopback
	reg   *registry.Registry
	group uint8
	ids   *pe.RequestIDs
	out   io.Writer
	rl    *readline.Instance
}

// New creates a console reading from the terminal.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "midi2> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(cfg, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(cfg Config, out io.Writer) *Console {
	return &Console{
		hub:   cfg.Hub,
		reg:   cfg.Registry,
		group: cfg.Group,
		ids:   pe.NewRequestIDs(1),
		out:   out,
	}
}

// Attach sets the hub and registry after construction. The console is
// usually created before the host so logging can go through it.
func (c *Console) Attach(hub *transport.Loopback, reg *registry.Registry) {
	c.hub = hub
	c.reg = reg
}

// Stdout returns a writer that coordinates with the readline prompt. Use
// it for log output so lines do not break the input line.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF, or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(ctx, line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It reports true for quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "zoom", "z":
		err = c.cmdZoom(ctx, args)
	case "pan", "p":
		err = c.cmdPan(ctx, args)
	case "reset":
		err = c.cmdTopic(ctx, args, vendor.TopicReset.String())
	case "rec":
		err = c.cmdRec(ctx, args)
	case "get", "g":
		err = c.cmdGet(ctx, args)
	case "set", "s":
		err = c.cmdSet(ctx, args)
	case "sysex":
		err = c.cmdSysEx(ctx, args)
	case "stats":
		c.cmdStats()
	case "quit", "exit", "q":
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
midi2-host Commands:
  Canvas:
    zoom <name> <ax> <ay> <mag>  - Zoom around a view anchor
    pan <name> <dx> <dy>         - Pan by a view-space delta
    reset <name>                 - Restore the initial transform
    rec <name> start|stop        - Toggle recording

  Property Exchange:
    get <name>                   - Request a snapshot
    set <name> key=value...      - Set properties (zoom, translation.x, translation.y)

  MIDI 1.0:
    sysex <name> <hex>           - Send a raw F0...F7 frame (spaces allowed)

  General:
    list                         - List handlers and their state
    stats                        - Show endpoint queue counters
    help                         - Show this help
    quit                         - Exit

  <name> matches any part of an endpoint display name.`)
}

func (c *Console) cmdList() {
	names := c.reg.Names()
	if len(names) == 0 {
		fmt.Fprintln(c.out, "No handlers registered")
		return
	}
	for _, name := range names {
		snap, err := c.reg.Snapshot(name)
		if err != nil {
			fmt.Fprintf(c.out, "  %-16s error: %v\n", name, err)
			continue
		}
		fmt.Fprintf(c.out, "  %-16s %s\n", name, formatSnapshot(snap))
	}
}

func (c *Console) cmdStats() {
	for _, name := range c.hub.Names() {
		ep, ok := c.hub.Resolve(name)
		if !ok {
			continue
		}
		s := ep.Stats()
		fmt.Fprintf(c.out, "  %-16s in=%d out=%d in_dropped=%d out_dropped=%d\n",
			name, s.Inbound, s.Outbound, s.InboundDropped, s.OutboundDropped)
	}
}

func (c *Console) cmdZoom(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: zoom <name> <ax> <ay> <mag>")
	}
	nums, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	data := jsonvalue.Object(
		jsonvalue.Field(vendor.FieldAnchorX, jsonvalue.Number(nums[0])),
		jsonvalue.Field(vendor.FieldAnchorY, jsonvalue.Number(nums[1])),
		jsonvalue.Field(vendor.FieldMagnification, jsonvalue.Number(nums[2])),
	)
	return c.sendVendor(ctx, args[0], vendor.TopicZoomAround.String(), data)
}

func (c *Console) cmdPan(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: pan <name> <dx> <dy>")
	}
	nums, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	data := jsonvalue.Object(
		jsonvalue.Field(vendor.FieldDX, jsonvalue.Number(nums[0])),
		jsonvalue.Field(vendor.FieldDY, jsonvalue.Number(nums[1])),
	)
	return c.sendVendor(ctx, args[0], vendor.TopicPanBy.String(), data)
}

func (c *Console) cmdRec(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: rec <name> start|stop")
	}
	switch strings.ToLower(args[1]) {
	case "start":
		return c.sendVendor(ctx, args[0], vendor.TopicRecordStart.String(), jsonvalue.Value{})
	case "stop":
		return c.sendVendor(ctx, args[0], vendor.TopicRecordStop.String(), jsonvalue.Value{})
	default:
		return fmt.Errorf("usage: rec <name> start|stop")
	}
}

func (c *Console) cmdTopic(ctx context.Context, args []string, topic string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <name>", strings.SplitN(topic, ".", 2)[1])
	}
	return c.sendVendor(ctx, args[0], topic, jsonvalue.Value{})
}

func (c *Console) cmdGet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get <name>")
	}
	id := c.ids.Next()
	if err := c.sendPE(ctx, args[0], pe.NewGet(id)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "GET sent (request %d)\n", id)
	return nil
}

func (c *Console) cmdSet(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <name> key=value...")
	}
	members := make([]jsonvalue.Member, 0, len(args)-1)
	for _, kv := range args[1:] {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid assignment %q, want key=value", kv)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, raw)
		}
		members = append(members, jsonvalue.Field(key, jsonvalue.Number(f)))
	}

	id := c.ids.Next()
	msg, err := pe.NewJSON(pe.CommandSet, id, jsonvalue.Object(members...))
	if err != nil {
		return err
	}
	if err := c.sendPE(ctx, args[0], msg); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "SET sent (request %d)\n", id)
	return nil
}

func (c *Console) cmdSysEx(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: sysex <name> <hex bytes F0...F7>")
	}
	buf, err := hex.DecodeString(strings.Join(args[1:], ""))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	msg, err := midi1.ToMessage(buf)
	if err != nil {
		return err
	}
	words, _ := midi1.ToWords(msg, c.group)
	if err := c.hub.Deliver(ctx, args[0], words); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "SYSEX sent (%d bytes)\n", len(buf))
	return nil
}

func (c *Console) sendVendor(ctx context.Context, name, topic string, data jsonvalue.Value) error {
	buf, err := vendor.Encode(topic, data)
	if err != nil {
		return err
	}
	return c.deliver(ctx, name, buf)
}

func (c *Console) sendPE(ctx context.Context, name string, msg pe.Message) error {
	buf, err := pe.WrapEnvelope(msg, 0x7F)
	if err != nil {
		return err
	}
	return c.deliver(ctx, name, buf)
}

func (c *Console) deliver(ctx context.Context, name string, buf []byte) error {
	return c.hub.Deliver(ctx, name, ump.EncodeSysEx7(buf, c.group))
}

// PrintReply writes a one-line description of reply words sent by
// endpoint. Register it with Endpoint.Observe.
func (c *Console) PrintReply(endpoint string, words []uint32) {
	fmt.Fprintf(c.out, "<- %s: %s\n", endpoint, Describe(words))
}

// Describe summarizes a SysEx7 word stream for display.
func Describe(words []uint32) string {
	buf, ok := ump.DecodeSysEx7(words)
	if !ok {
		return fmt.Sprintf("incomplete sysex (%d words)", len(words))
	}
	if msg, ok := vendor.Decode(buf); ok {
		if !msg.Data.IsDefined() {
			return msg.Topic
		}
		if snap, err := registry.ParseSnapshot("", msg.Data); err == nil && msg.Kind() == vendor.TopicSnapshot {
			return msg.Topic + " " + formatSnapshot(snap)
		}
		return msg.Topic + " " + msg.Data.String()
	}
	msg, err := pe.Unwrap(buf)
	if err != nil {
		if desc, derr := midi1.Describe(buf); derr == nil {
			return desc
		}
		return fmt.Sprintf("unrecognized sysex (%d bytes): %v", len(buf), err)
	}
	desc := fmt.Sprintf("%s id=%d", msg.Command, msg.RequestID)
	if len(msg.Data) == 0 {
		return desc
	}
	doc, err := msg.JSON()
	if err != nil {
		return desc + " " + strconv.Quote(string(msg.Data))
	}
	if snap, err := registry.ParseSnapshot("", doc); err == nil && snap.Len() > 0 {
		return desc + " " + formatSnapshot(snap)
	}
	return desc + " " + doc.String()
}

func formatSnapshot(s registry.Snapshot) string {
	entries := s.Entries()
	parts := make([]string, 0, len(entries))
	for _, p := range entries {
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		parts = append(parts, p.Name+"="+strings.Join(vals, ","))
	}
	return strings.Join(parts, " ")
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = f
	}
	return out, nil
}
