package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/sldlab/sld/conf"
	"github.com/sldlab/sld/lib/link"
	"github.com/sldlab/sld/lib/obj"
)

func Main(cfg *conf.Config) (err error) {
	var inputs []link.Input
	if inputs, err = obj.ReadFiles(cfg.Inputs); err != nil {
		return
	}

	s := link.NewSession(link.Options{
		Entry:        cfg.Entry,
		StrictRelocs: cfg.StrictRelocs,
	}, link.NewStderrSink())

	var out *os.File
	out, err = os.OpenFile(cfg.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return
	}
	defer func() {
		if errx := out.Close(); errx != nil && err == nil {
			err = errx
		}
	}()

	if err = link.Link(s, inputs, out); err != nil {
		return
	}

	if cfg.Trace {
		dumpTrace(s)
	}
	return
}

func dumpTrace(s *link.Session) {
	cf := spew.NewDefaultConfig()
	cf.Indent = "  "
	cf.MaxDepth = 3
	cf.Fdump(os.Stderr, s)
	fmt.Fprintf(os.Stderr, "atoms: %d, output sections: %d\n",
		s.NumAtoms(), s.NumOutSecs())
}
