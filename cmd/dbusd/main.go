package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/mordilloSan/dbusd/common/config"
	"github.com/mordilloSan/dbusd/common/version"
	core "github.com/mordilloSan/dbusd/dbus"
	"github.com/mordilloSan/dbusd/dbus/godbusadapter"
	"github.com/mordilloSan/dbusd/hostloop"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(0)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		runServe(args)
	case "introspect":
		runIntrospect(args)
	case "bus":
		runBus(args)
	case "version":
		showVersion()
	case "help", "-h", "--help":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Printf("\033[1mdbusd - D-Bus integration core\033[0m\n")
	fmt.Println(`
Usage: dbusd <command> [options]

Commands:
  serve [address]   Listen for peer connections and export the demo greeter object
                     (default: DBUSD_PEER_ADDRESS or unix:path=/run/dbusd/peer.sock)
  introspect        Print the demo greeter object's introspection XML and exit
  bus [system|session]  Join a well-known bus, exercise the disconnect filter, and exit
  version           Show version information
  help              Show this help message`)
}

func showVersion() {
	fmt.Printf("\033[1mdbusd\033[0m %s\n", version.Version)
	fmt.Printf("  commit: %s\n", version.CommitSHA)
	fmt.Printf("  built:  %s\n", version.BuildTime)
	fmt.Printf("  sha256: %s\n", version.SelfSHA256())
}

func runIntrospect(args []string) {
	iface := greeterInterface()
	obj := &core.Object{Path: config.DefaultObjectRoot, Interfaces: []core.Interface{iface}}
	xml, err := obj.Introspect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "introspect: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(xml)
}

func runServe(args []string) {
	env := config.EnvProduction
	if config.Verbose() {
		env = config.EnvDevelopment
	}
	logger.Init(env, config.Verbose())

	address := config.PeerAddress()
	if len(args) > 0 {
		address = args[0]
	}

	loop, err := hostloop.New()
	if err != nil {
		logger.Errorf("create host loop: %v", err)
		os.Exit(1)
	}
	defer loop.Close()

	iface := greeterInterface()
	onConnect := func(conn *core.Connection) bool {
		if _, err := core.NewObject(conn, config.DefaultObjectRoot, []core.Interface{iface}, nil); err != nil {
			logger.Warnf("export greeter on accepted connection: %v", err)
			return false
		}
		return true
	}

	listener := godbusadapter.NewListener()
	server, err := core.NewServer(listener, address, onConnect, func() {
		logger.InfoKV("peer disconnected")
	}, nil)
	if err != nil {
		logger.Errorf("start server: %v", err)
		os.Exit(1)
	}
	defer server.Close()

	logger.InfoKV("dbusd serving", "address", address)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-stop
		close(done)
	}()

	if err := loop.Run(done); err != nil {
		logger.Errorf("host loop: %v", err)
		os.Exit(1)
	}
}

func runBus(args []string) {
	kind := core.SystemBus
	if len(args) > 0 && args[0] == "session" {
		kind = core.SessionBus
	}

	disconnected := make(chan struct{})
	conn, err := core.Bus(godbusadapter.NewDialer(), kind, func() {
		close(disconnected)
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bus: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("joined %s bus, refs=%d\n", kind, core.RefCount(conn.Key))
	_ = godbusadapter.Close(conn)
}

// greeterInterface is the demo object exported by "serve" and described
// by "introspect": a single Greet method that echoes its argument back
// with a fixed prefix, enough to exercise the dispatcher end to end.
func greeterInterface() core.Interface {
	return core.Interface{
		Name: "com.example.Greeter",
		Methods: []core.Method{
			{
				Name: "Greet",
				Args: []core.Arg{
					{Name: "name", Type: "s", Direction: core.In},
					{Name: "greeting", Type: "s", Direction: core.Out},
				},
				Marshaller: func(o *core.Object, msg *core.Message) core.DispatchResult {
					name := "stranger"
					if len(msg.Body) > 0 {
						if s, ok := msg.Body[0].(string); ok {
							name = s
						}
					}
					return msg.Reply(fmt.Sprintf("Hello, %s!", name))
				},
			},
		},
	}
}
