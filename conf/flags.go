package conf

import (
	"flag"
	"fmt"
	"os"
)

func (c *Config) FlagSet(name string, errorHandling flag.ErrorHandling) *flag.FlagSet {
	fs := flag.NewFlagSet(name, errorHandling)
	c.fs = fs

	fs.StringVar(&c.Output, "o", c.Output, "Output file")
	fs.StringVar(&c.Output, "out", c.Output, "Output file")

	fs.StringVar(&c.Entry, "e", c.Entry, "Entry symbol")
	fs.StringVar(&c.Entry, "entry", c.Entry, "Entry symbol")

	fs.BoolVar(&c.StrictRelocs, "strict-relocs", false, "Fail on unsupported relocation types")
	fs.BoolVar(&c.Trace, "trace", false, "Dump link state to stderr after writing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] ...file.o\n", name)
	}
	return fs
}
