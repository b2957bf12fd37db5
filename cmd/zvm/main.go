// Command zvm is the headless CLI interpreter: load a story file, optionally
// dump its header/object tree/dictionary, and drive it to completion against
// stdin/stdout, with save/restore backed by the working directory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/haldor-if/zvm/zmachine"
	"github.com/haldor-if/zvm/zobject"
)

var interpreterIDs = map[string]uint8{
	"dec":      1,
	"apple2e":  2,
	"mac":      3,
	"amiga":    4,
	"atari-st": 5,
	"ibm-pc":   6,
	"c64":      8,
	"next":     12,
}

type diskStorage struct{ dir string }

func (d diskStorage) path(name string) string {
	if name == "" {
		name = "story.qzl"
	}
	if d.dir == "" {
		return name
	}
	return d.dir + "/" + name
}

func (d diskStorage) Save(name string, data []byte) error {
	return os.WriteFile(d.path(name), data, 0644)
}

func (d diskStorage) Load(name string) ([]byte, error) {
	return os.ReadFile(d.path(name))
}

func main() {
	debug := flag.Bool("d", false, "enable debug logs")
	flag.BoolVar(debug, "debug", false, "enable debug logs")
	interpreter := flag.String("i", "", "interpreter-id byte (amiga, dec, ibm-pc, c64, apple2e, mac, atari-st, next)")
	flag.StringVar(interpreter, "interpreter", "", "interpreter-id byte (amiga, dec, ibm-pc, c64, apple2e, mac, atari-st, next)")
	dumpHeader := flag.Bool("h", false, "dump header")
	flag.BoolVar(dumpHeader, "header", false, "dump header")
	dumpObjectTree := flag.Bool("o", false, "dump object tree")
	flag.BoolVar(dumpObjectTree, "objectTree", false, "dump object tree")
	dumpDict := flag.Bool("t", false, "dump dictionary")
	flag.BoolVar(dumpDict, "dict", false, "dump dictionary")
	noExec := flag.Bool("n", false, "parse only, do not execute")
	flag.BoolVar(noExec, "noExec", false, "parse only, do not execute")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: zvm [flags] <story-file>")
		os.Exit(1)
	}
	storyPath := flag.Arg(0)

	storyBytes, err := os.ReadFile(storyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zvm: %s\n", err)
		os.Exit(1)
	}

	z, err := zmachine.LoadRom(storyBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zvm: %s\n", err)
		os.Exit(1)
	}

	if *interpreter != "" {
		id, ok := interpreterIDs[*interpreter]
		if !ok {
			fmt.Fprintf(os.Stderr, "zvm: unknown interpreter id %q\n", *interpreter)
			os.Exit(1)
		}
		z.Core.SetInterpreterNumber(id)
	}

	z.SetStorage(diskStorage{})

	if *dumpHeader {
		dumpHeaderFields(z)
	}
	if *dumpObjectTree {
		dumpObjects(z)
	}
	if *dumpDict {
		dumpDictionary(z)
	}

	if *noExec {
		return
	}

	run(z, *debug)
}

func dumpHeaderFields(z *zmachine.Machine) {
	c := z.Core
	fmt.Printf("Version:            %d\n", c.Version)
	fmt.Printf("Release:            %d\n", c.ReleaseNumber)
	fmt.Printf("Serial:             %s\n", string(c.SerialCode[:]))
	fmt.Printf("First instruction:  0x%05x\n", c.FirstInstruction)
	fmt.Printf("Dictionary base:    0x%04x\n", c.DictionaryBase)
	fmt.Printf("Object table base:  0x%04x\n", c.ObjectTableBase)
	fmt.Printf("Global var base:    0x%04x\n", c.GlobalVariableBase)
	fmt.Printf("Static memory base: 0x%04x\n", c.StaticMemoryBase)
	fmt.Printf("Abbreviation base:  0x%04x\n", c.AbbreviationTableBase)
	fmt.Printf("File length:        %d\n", c.FileLength())
	fmt.Printf("Checksum:           0x%04x (verify=%v)\n", c.FileChecksum, c.Verify())
}

func dumpObjects(z *zmachine.Machine) {
	for id := uint16(1); ; id++ {
		obj, err := zobject.GetObject(id, z.Core, z.Alphabets)
		if err != nil {
			break
		}
		fmt.Printf("%4d  %-30s parent=%-4d sibling=%-4d child=%-4d attrs=%016x\n",
			obj.Id, obj.Name, obj.Parent, obj.Sibling, obj.Child, obj.Attributes)
	}
}

func dumpDictionary(z *zmachine.Machine) {
	for _, entry := range z.Dictionary.Entries {
		fmt.Printf("0x%04x  %-10s\n", entry.Address, entry.DecodedWord)
	}
}

// run drives the machine to completion against stdin/stdout, per the
// headless CLI contract: no screen host beyond plain text, no split windows.
func run(z *zmachine.Machine, debug bool) {
	stdin := bufio.NewReader(os.Stdin)

	for {
		result := z.Step()

		for _, event := range result.Events {
			switch event := event.(type) {
			case string:
				fmt.Print(event)
			case zmachine.RuntimeError:
				fmt.Fprintf(os.Stderr, "\nzvm: %s\n", event.Err.Error())
			case zmachine.Warning:
				if debug {
					fmt.Fprintf(os.Stderr, "zvm: warning: %s\n", event.Message)
				}
			}
		}

		switch result.Kind {
		case zmachine.Halted:
			return

		case zmachine.AwaitingLine:
			line, err := stdin.ReadString('\n')
			if err != nil && line == "" {
				_ = z.CompleteLine("", 13)
				continue
			}
			_ = z.CompleteLine(strings.TrimRight(line, "\r\n"), 13)

		case zmachine.AwaitingChar:
			b, err := stdin.ReadByte()
			if err != nil {
				z.CompleteChar(13)
				continue
			}
			z.CompleteChar(b)
		}
	}
}
