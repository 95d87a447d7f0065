// Command rvsim is the command-line front end for the RV32I core: it
// assembles, runs, single-steps, and links programs, printing structured
// output through the debug package via flag-parsed subcommands.
package main

import (
	"flag"
	"fmt"
	"os"

	"rv32sim/asm"
	"rv32sim/core"
	"rv32sim/debug"
	"rv32sim/link"
	"rv32sim/sim"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "step":
		err = stepCmd(os.Args[2:])
	case "asm":
		err = asmCmd(os.Args[2:])
	case "link":
		err = linkCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "rvsim:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  rvsim run [--budget N] [--mem-size N] <file.s>
  rvsim step [-n N] <file.s>
  rvsim asm -o <file.o> <file.s>
  rvsim link -o <out.bin> <a.o> <b.o> ...
flags are read only before the first file argument`)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	budget := fs.Int("budget", sim.DefaultBudget, "instruction budget")
	memSize := fs.Uint("mem-size", core.DefaultMemorySize, "memory size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run: expected exactly one input file")
	}

	text, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	s := sim.New(uint32(*memSize))
	s.SetBudget(*budget)
	if err := s.Load(string(text)); err != nil {
		return err
	}
	if err := s.Run(0); err != nil {
		return err
	}

	debug.NewPrinter(os.Stdout).Snapshot(s.Snapshot())
	return nil
}

func stepCmd(args []string) error {
	fs := flag.NewFlagSet("step", flag.ExitOnError)
	n := fs.Int("n", 1, "number of instructions to step")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("step: expected exactly one input file")
	}

	text, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	s := sim.New(core.DefaultMemorySize)
	if err := s.Load(string(text)); err != nil {
		return err
	}

	printer := debug.NewPrinter(os.Stdout)
	for i := 0; i < *n; i++ {
		if err := s.Step(); err != nil {
			printer.Snapshot(s.Snapshot())
			return err
		}
		printer.Snapshot(s.Snapshot())
		if s.State() != sim.Running {
			break
		}
	}
	return nil
}

func asmCmd(args []string) error {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	out := fs.String("o", "", "output object file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *out == "" {
		return fmt.Errorf("asm: usage: rvsim asm -o <file.o> <file.s>")
	}

	path := fs.Arg(0)
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	obj, err := asm.AssembleObject(path, string(text))
	if err != nil {
		return err
	}

	if err := os.WriteFile(*out, obj.Encode(), 0o644); err != nil {
		return err
	}

	debug.NewPrinter(os.Stdout).Object(obj)
	return nil
}

func linkCmd(args []string) error {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	out := fs.String("o", "", "output flat binary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *out == "" {
		return fmt.Errorf("link: usage: rvsim link -o <out.bin> <a.o> <b.o> ...")
	}

	var objs []*asm.Object
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		obj, err := asm.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		objs = append(objs, obj)
	}

	flat, err := link.Link(objs)
	if err != nil {
		return err
	}

	return os.WriteFile(*out, flat, 0o644)
}
