// Package obj reads relocatable object files from disk into linker inputs.
package obj

import (
	"fmt"
	"os"

	"github.com/sldlab/sld/lib/elf"
	"github.com/sldlab/sld/lib/link"
)

// ReadFile loads one object file into memory. The magic is checked here so
// the caller gets a path-level error before the file reaches the parser.
func ReadFile(path string) (in link.Input, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		return
	}
	if !elf.CheckMagic(data) {
		err = fmt.Errorf("%s: not an ELF file", path)
		return
	}
	in = link.Input{Name: path, Data: data}
	return
}

// ReadFiles loads every path in command-line order.
func ReadFiles(paths []string) (ins []link.Input, err error) {
	ins = make([]link.Input, 0, len(paths))
	for _, path := range paths {
		var in link.Input
		if in, err = ReadFile(path); err != nil {
			return nil, err
		}
		ins = append(ins, in)
	}
	return
}
