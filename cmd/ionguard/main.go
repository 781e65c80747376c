// Command ionguard is the VM's host process entry point: it locates and
// decrypts its own trailing code blob, maps VMEM, and runs the guest
// program until it exits (§6). Flags are parsed by hand off os.Args,
// following the teacher's own argv-driven startup instead of a flags
// library.
package main

import (
	"fmt"
	"os"

	"github.com/ionguard/ionguard/internal/hostos"
	"github.com/ionguard/ionguard/internal/loader"
	"github.com/ionguard/ionguard/internal/vm"
)

func main() {
	debug := false
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-debug":
			debug = true
		default:
			fmt.Fprintf(os.Stderr, "ionguard: unrecognized argument %q\n", arg)
			os.Exit(1)
		}
	}

	host := hostos.Linux{}

	loaded, err := loader.Load(host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ionguard: %v\n", err)
		os.Exit(1)
	}

	machine := vm.NewMachine(loaded.Code, host)
	machine.Debug = debug

	thread := machine.NewThread(loader.EntryVIP)
	if debug {
		mon, err := vm.NewMonitor(os.Stdin, os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ionguard: %v\n", err)
			os.Exit(1)
		}
		defer mon.Close()
		thread.Monitor = mon
	}

	code, err := thread.Emulate()
	if err != nil {
		if he, ok := err.(*vm.HostExit); ok {
			os.Exit(he.Code)
		}
		fmt.Fprintf(os.Stderr, "ionguard: %v\n", err)
		os.Exit(1)
	}

	// Join any FORK-spawned children before sys_exit_group-equivalent
	// process exit (§5).
	if err := machine.Forks.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "ionguard: child thread error: %v\n", err)
	}

	host.Exit(int(int32(code)))
}
