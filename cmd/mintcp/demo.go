package main

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kpchow/mintcp/config"
	"github.com/kpchow/mintcp/internal/simlink"
	"github.com/kpchow/mintcp/tcplog"
	"github.com/kpchow/mintcp/transport/tcp"
	"github.com/kpchow/mintcp/wire"
)

var (
	demoMessage string
	demoDrop    float64
	demoReorder bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a full handshake, transfer and teardown between two in-process connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := tcp.DefaultConfig()
		if configFile != "" {
			loaded, level, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			if parsed, err := logrus.ParseLevel(level); err == nil {
				tcplog.SetLevel(parsed)
			}
		}
		return runDemo(cmd, cfg)
	},
}

func init() {
	demoCmd.Flags().StringVarP(&demoMessage, "message", "m", "hello from mintcp", "payload to transfer from the active opener")
	demoCmd.Flags().Float64Var(&demoDrop, "drop", 0, "probability in [0,1) that a segment is dropped in transit")
	demoCmd.Flags().BoolVar(&demoReorder, "reorder", false, "shuffle segments within a pump cycle")
}

var (
	activeEndpoint  = wire.Endpoint{Addr: net.IPv4(10, 0, 0, 1), Port: 50000}
	passiveEndpoint = wire.Endpoint{Addr: net.IPv4(10, 0, 0, 2), Port: 80}
)

func runDemo(cmd *cobra.Command, cfg tcp.Config) error {
	out := cmd.OutOrStdout()

	active := tcp.NewConnection(cfg)
	passive := tcp.NewConnection(cfg)

	toPassive := simlink.New(simlink.Options{DropProbability: demoDrop, Reorder: demoReorder})
	toActive := simlink.New(simlink.Options{DropProbability: demoDrop, Reorder: demoReorder})

	active.Connect()
	active.Write([]byte(demoMessage))
	active.EndInputStream()

	const tickMs = 10
	const maxTicks = 2000

	for t := 0; t < maxTicks; t++ {
		for _, seg := range active.SegmentsOut() {
			raw, err := wire.Encode(seg, activeEndpoint, passiveEndpoint)
			if err != nil {
				return fmt.Errorf("encode active->passive: %w", err)
			}
			toPassive.Send(raw)
		}
		for _, seg := range passive.SegmentsOut() {
			raw, err := wire.Encode(seg, passiveEndpoint, activeEndpoint)
			if err != nil {
				return fmt.Errorf("encode passive->active: %w", err)
			}
			toActive.Send(raw)
		}

		toPassive.Pump()
		toActive.Pump()

		for _, raw := range toPassive.Drain() {
			seg, _, _, err := wire.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode at passive: %w", err)
			}
			passive.SegmentReceived(seg)
		}
		for _, raw := range toActive.Drain() {
			seg, _, _, err := wire.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode at active: %w", err)
			}
			active.SegmentReceived(seg)
		}

		active.Tick(tickMs)
		passive.Tick(tickMs)

		if !active.Active() && !passive.Active() {
			break
		}
	}

	received := passive.InboundStream().Peek(passive.InboundStream().BufferSize())
	fmt.Fprintf(out, "passive received: %q\n", received)
	fmt.Fprintf(out, "active active=%v passive active=%v\n", active.Active(), passive.Active())

	return nil
}
