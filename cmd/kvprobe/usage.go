package main

import (
	"fmt"
)

func dispatchCommand(state *cliState, args []string) error {
	switch args[0] {
	case "copy":
		return runCopy(state, args[1:])
	case "list-algos":
		return runListAlgos(state, args[1:])
	case "compact":
		return runCompact(state, args[1:])
	case "clear":
		return runClear(state, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage() {
	fmt.Println("usage: kvprobe [global flags] <command> [command flags]")
	fmt.Println("commands: copy, list-algos, compact, clear")
	fmt.Println()
	fmt.Println("  copy       -i <src> -o <dest> [-compress] [-overwrite]   clone a database")
	fmt.Println("  list-algos -i <db>                                       report block compressors")
	fmt.Println("  compact    -i <db> [-compress]                           compact in place (guarded)")
	fmt.Println("  clear      -i <db>                                       delete every record (guarded)")
	fmt.Println()
	fmt.Println("global flags: -verbose, -quiet")
}
