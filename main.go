package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/odmlbook/inkvision/config"
	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/session"
	"github.com/odmlbook/inkvision/shell"
	"github.com/odmlbook/inkvision/version"
)

func main() {
	serverMode := flag.Bool("server", false, "run the REST API server")
	port := flag.String("port", "", "server port (default from config)")
	configPath := flag.String("config", "", "config file")
	jsonOutput := flag.Bool("json", false, "json output")
	noCache := flag.Bool("no-cache", false, "do not read or write the session cache")
	showVersion := flag.Bool("version", false, "print the version")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] [command [args]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		log.Error.Fatalln(err)
	}

	var store *session.Store
	if !*noCache {
		store, err = session.NewStore("")
		if err != nil {
			log.Warning.Printf("session cache disabled: %v", err)
			store = nil
		}
	}

	if *serverMode {
		p := *port
		if p == "" {
			p = cfg.Server.Port
		}
		runServerMode(cfg, store, p)
		return
	}

	ctx := shell.NewShellCtxt(cfg, store)
	ctx.JSONOutput = *jsonOutput
	defer ctx.Close()

	if err := shell.RunShell(ctx, flag.Args()); err != nil {
		log.Error.Println("Error: ", err)
		os.Exit(1)
	}
}
