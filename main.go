package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sldlab/sld/cmd"
	"github.com/sldlab/sld/conf"
)

func _main(args []string) {
	var err error
	var exitCode int
	cfg := conf.Default()
	fs := cfg.FlagSet("sld", flag.ExitOnError)
	oldUsage := fs.Usage
	fs.Usage = func() {
		oldUsage()
		fs.PrintDefaults()
		exitCode = 0
		os.Exit(exitCode)
	}
	err = fs.Parse(args)
	if err != nil {
		goto Exit
	}
	err = cfg.Validate()
	if err != nil {
		goto Exit
	}
	err = cmd.Main(cfg)
	if err != nil {
		goto Exit
	}
Exit:
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
		fs.Usage()
		exitCode = 1
	}
	os.Exit(exitCode)
}

func main() {
	_main(os.Args[1:])
}
