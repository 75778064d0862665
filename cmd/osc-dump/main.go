// osc-dump listens for OSC messages and prints them, standing in for the
// renderer when patching or debugging an installation.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hypebeast/go-osc/osc"

	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "UDP address to listen on")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*level)

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler("*", handle); err != nil {
		fmt.Fprintf(os.Stderr, "❌ osc-dump: %v\n", err)
		os.Exit(1)
	}

	server := &osc.Server{Addr: *addr, Dispatcher: d}
	log.Info("listening", "addr", *addr)
	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ osc-dump: %v\n", err)
		os.Exit(1)
	}
}

func handle(om *osc.Message) {
	msg, err := protocol.FromOSC(om)
	if err != nil {
		log.Warn("unrecognised message", "address", om.Address, "args", om.Arguments, "error", err)
		return
	}
	fmt.Println(msg.String())
}
