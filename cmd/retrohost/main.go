// Command retrohost is a minimal headless driver for the host package:
// it loads a core and ROM, runs the scheduler for a fixed duration, then
// flushes SRAM and exits. It has no display or audio UI of its own — it
// exists to exercise the host library end to end from the command line.
package main

import (
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/user-none/retrohost/host"
	"github.com/user-none/retrohost/host/config"
)

func main() {
	corePath := flag.String("core", "", "path to the libretro core shared library")
	romPath := flag.String("rom", "", "path to the rom file (archives are staged transparently)")
	configPath := flag.String("config", "", "path to the host config file (defaults are used if absent)")
	runFor := flag.Duration("run-for", 5*time.Second, "how long to run the scheduler before exiting")
	flag.Parse()

	if *corePath == "" || *romPath == "" {
		log.Fatal("retrohost: -core and -rom are required")
	}

	path := *configPath
	if path == "" {
		path = "retrohost.json"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("retrohost: load config: %v", err)
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = filepath.Dir(*romPath)
	}

	session := host.New(cfg)
	if err := session.SelectCore(*corePath); err != nil {
		log.Fatalf("retrohost: select core: %v", err)
	}
	session.Init()
	if err := session.LoadROM(*romPath); err != nil {
		log.Fatalf("retrohost: load rom: %v", err)
	}

	session.StartScheduler()
	time.Sleep(*runFor)
	session.StopScheduler()

	if err := session.SaveSRAM(); err != nil {
		log.Printf("retrohost: save sram: %v", err)
	}
	session.Destroy()

	if err := config.Save(path, cfg); err != nil {
		log.Printf("retrohost: save config: %v", err)
	}
}
