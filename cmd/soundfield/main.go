// soundfield streams listener-relative source positions to the spatial
// audio renderer for the installation.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/teslashibe/go-soundfield/internal/config"
	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/debug"
	"github.com/teslashibe/go-soundfield/pkg/pose"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
	"github.com/teslashibe/go-soundfield/pkg/session"
	"github.com/teslashibe/go-soundfield/pkg/transport"
	"github.com/teslashibe/go-soundfield/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ soundfield: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/soundfield.yaml", "Installation file")
	dryRun := flag.Bool("dry-run", false, "Compute messages without sending them to the renderer")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugProtocol := flag.Bool("debug-protocol", false, "Log every outbound message (very verbose)")
	renderer := flag.String("renderer", "", "Renderer host:port (overrides config and environment)")
	flag.Parse()

	inst, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := inst.ApplyEnv(); err != nil {
		return err
	}
	if *renderer != "" {
		host, port, err := net.SplitHostPort(*renderer)
		if err != nil {
			return fmt.Errorf("--renderer: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("--renderer: bad port %q", port)
		}
		inst.Renderer.Host, inst.Renderer.Port = host, p
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	if *debugFlag {
		inst.LogLevel = "debug"
	}
	log.Init(inst.LogLevel)
	debug.Enabled, debug.Protocol = *debugFlag, *debugProtocol

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	poses, closePoses, err := openPoseSource(ctx, inst.Pose)
	if err != nil {
		return err
	}
	defer closePoses()

	var out transport.Multi
	if *dryRun {
		out = append(out, transport.SenderFunc(func(msg protocol.Message) error {
			log.Debug("dry run", "message", msg.String())
			return nil
		}))
	} else {
		osc, err := transport.NewOSC(inst.Renderer)
		if err != nil {
			return err
		}
		defer osc.Close()
		out = append(out, osc)
		log.Info("renderer configured", "addr", osc.Addr())
	}

	// The monitor needs the scheduler and the scheduler needs the sender,
	// so it joins the fan-out after the scheduler exists.
	sender := &fanout{senders: out}

	sched := session.New(inst.Spatial, session.Options{
		Sender:     sender,
		Poses:      poses,
		Discoverer: inst.Discoverer(),
		Sources:    inst.Sources,
	})
	// Abnormal exits still announce the end of playback; Shutdown is idempotent.
	defer sched.Shutdown()

	if inst.MonitorAddr != "" {
		monitor := web.NewServer(sched)
		sender.Add(monitor)
		monitor.StartAsync(inst.MonitorAddr)
		defer monitor.Shutdown()
	}

	return session.Run(ctx, sched, inst.TickInterval())
}

// fanout sends to a set of senders that is completed before the session
// starts. Add must not race with Send.
type fanout struct {
	senders transport.Multi
}

func (f *fanout) Add(s transport.Sender) {
	f.senders = append(f.senders, s)
}

func (f *fanout) Send(msg protocol.Message) error {
	return f.senders.Send(msg)
}

// openPoseSource connects the configured listener pose source.
func openPoseSource(ctx context.Context, cfg config.PoseConfig) (pose.Source, func(), error) {
	if cfg.FeedURL != "" {
		feedCfg := pose.DefaultFeedConfig()
		feedCfg.URL = cfg.FeedURL
		feedCfg.MaxAge = cfg.MaxAge
		feed := pose.NewFeed(feedCfg)
		if err := feed.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return feed, func() { feed.Close() }, nil
	}

	poller := pose.NewPoller(cfg.PollURL, cfg.PollInterval)
	pollCtx, stop := context.WithCancel(ctx)
	go poller.Run(pollCtx)
	return poller, stop, nil
}
