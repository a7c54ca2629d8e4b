package main

import (
	"flag"
	"fmt"
	"gopherboot/bootinfo"
	"gopherboot/kernel/mem/pmm"
	"gopherboot/loader"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[bootinfo] error: %s\n", err.Error())
	os.Exit(1)
}

// addrRange is a flag.Value that parses "START:END" physical address pairs.
type addrRange struct {
	start, end pmm.PhysAddr
}

func (r *addrRange) String() string {
	return fmt.Sprintf("0x%x:0x%x", uint64(r.start), uint64(r.end))
}

func (r *addrRange) Set(v string) error {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return errors.Errorf("expected START:END; got %q", v)
	}

	start, err := strconv.ParseUint(parts[0], 0, 64)
	if err != nil {
		return errors.Wrap(err, "invalid range start")
	}

	end, err := strconv.ParseUint(parts[1], 0, 64)
	if err != nil {
		return errors.Wrap(err, "invalid range end")
	}

	if end < start {
		return errors.Errorf("range end 0x%x is below its start 0x%x", end, start)
	}

	r.start, r.end = pmm.PhysAddr(start), pmm.PhysAddr(end)
	return nil
}

// recordSource adapts a slice of firmware records to loader.RecordSource.
func recordSource(recs []bootinfo.E820MemoryRegion) loader.RecordSource {
	return func(visitor func(*bootinfo.E820MemoryRegion) bool) {
		for i := range recs {
			if !visitor(&recs[i]) {
				return
			}
		}
	}
}

// buildImage runs the loader handoff logic on host-supplied firmware records
// and returns the resulting record together with its boot info address.
func buildImage(recs []bootinfo.E820MemoryRegion, layout loader.Layout) (bootinfo.BootInfo, pmm.PhysAddr, error) {
	var info bootinfo.BootInfo

	m, kerr := loader.BuildMemoryMap(recordSource(recs))
	if kerr != nil {
		return info, 0, errors.Wrap(kerr, "failed to build memory map")
	}

	addr, kerr := loader.Handoff(&m, layout, &info)
	if kerr != nil {
		return info, 0, errors.Wrap(kerr, "handoff failed")
	}

	return info, addr, nil
}

func runBuild(args []string, stdout io.Writer) error {
	var (
		fs                               = flag.NewFlagSet("build", flag.ContinueOnError)
		recordsFile                      = fs.String("records", "", "firmware memory map records file")
		outFile                          = fs.String("out", "", "output image file")
		compress                         = fs.Bool("z", false, "compress the image body")
		p4TableAddr                      = fs.Uint64("p4", 0, "physical address of the root page table")
		bootInfoAddr                     = fs.Uint64("bootinfo", 0, "physical address of the boot info record (0 to allocate)")
		loaderRange, kernelRange         addrRange
		kernelStackRange, pageTableRange addrRange
	)
	fs.Var(&loaderRange, "loader", "loader image range START:END")
	fs.Var(&kernelRange, "kernel", "kernel image range START:END")
	fs.Var(&kernelStackRange, "stack", "kernel stack range START:END")
	fs.Var(&pageTableRange, "pagetables", "page table range START:END")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *recordsFile == "" || *outFile == "" {
		return errors.New("build requires the -records and -out flags")
	}

	f, err := os.Open(*recordsFile)
	if err != nil {
		return err
	}
	recs, err := readRecords(f)
	f.Close()
	if err != nil {
		return err
	}

	info, addr, err := buildImage(recs, loader.Layout{
		LoaderStart:      loaderRange.start,
		LoaderEnd:        loaderRange.end,
		KernelStart:      kernelRange.start,
		KernelEnd:        kernelRange.end,
		KernelStackStart: kernelStackRange.start,
		KernelStackEnd:   kernelStackRange.end,
		PageTableStart:   pageTableRange.start,
		PageTableEnd:     pageTableRange.end,
		P4TableAddr:      pmm.PhysAddr(*p4TableAddr),
		BootInfoAddr:     pmm.PhysAddr(*bootInfoAddr),
	})
	if err != nil {
		return err
	}

	out, err := os.Create(*outFile)
	if err != nil {
		return err
	}

	if err = writeImage(out, &info, *compress); err != nil {
		out.Close()
		return err
	}

	if err = out.Close(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "boot info at 0x%x, %d memory regions\n", uint64(addr), info.MemoryMap.Len())
	return nil
}

func loadImage(file string) (bootinfo.BootInfo, error) {
	f, err := os.Open(file)
	if err != nil {
		return bootinfo.BootInfo{}, err
	}
	defer f.Close()

	info, err := readImage(f)
	return info, errors.Wrapf(err, "failed to load %s", file)
}

func runDump(args []string, stdout io.Writer, colorOut bool) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	noColor := fs.Bool("no-color", false, "disable colored output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("dump requires the path to an image as an argument")
	}

	info, err := loadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	dumpBootInfo(stdout, &info, colorOut && !*noColor)
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	outFile := fs.String("out", "", "output PNG file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outFile == "" || fs.NArg() != 1 {
		return errors.New("render requires the -out flag and the path to an image as an argument")
	}

	info, err := loadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	out, err := os.Create(*outFile)
	if err != nil {
		return err
	}

	if err = renderBootInfo(out, &info); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func runE820(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("e820", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("e820 requires the path to an image as an argument")
	}

	info, err := loadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	printE820(stdout, toE820(&info))
	return nil
}

func main() {
	flag.Parse()
	if len(flag.Args()) == 0 {
		exit(errors.New("missing command"))
	}

	var (
		cmd  = flag.Arg(0)
		args = flag.Args()[1:]
		err  error
	)

	switch cmd {
	case "build":
		err = runBuild(args, os.Stdout)
	case "dump":
		colorOut := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		err = runDump(args, os.Stdout, colorOut)
	case "render":
		err = runRender(args)
	case "e820":
		err = runE820(args, os.Stdout)
	default:
		err = errors.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		exit(err)
	}
}
