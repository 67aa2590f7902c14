package conf

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
)

type Config struct {
	// Output is the executable path, created with mode 0755.
	Output string

	// Entry names the symbol whose address becomes the image entry point.
	Entry string

	// StrictRelocs turns unsupported relocation types into hard errors.
	StrictRelocs bool

	// Trace dumps the final link state to stderr.
	Trace bool

	Inputs []string

	fs *flag.FlagSet
}

func Default() *Config {
	return &Config{
		Output: env.Str("SLD_OUTPUT", "a.out"),
		Entry:  env.Str("SLD_ENTRY", "_start"),
	}
}

func (cfg *Config) Validate() error {
	cfg.Output = mustAbs(cfg.Output)

	var invalidFile []string
	for _, inp := range cfg.fs.Args() {
		originalFilename := inp
		inp = mustAbs(inp)
		if strings.HasSuffix(inp, ".o") && validateFilePath(inp) {
			cfg.Inputs = append(cfg.Inputs, inp)
			continue
		}
		invalidFile = append(invalidFile, originalFilename)
	}
	if len(invalidFile) > 0 {
		for _, fn := range invalidFile {
			fmt.Fprintf(os.Stderr, "error: file %q: not .o, or the file is missing.\n", fn)
		}
		return fmt.Errorf("invalid input")
	}

	if len(cfg.Inputs) < 1 {
		return fmt.Errorf("nothing to do")
	}
	return nil
}
