package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/kvprobe/kvprobe/internal/dbops"
)

func runListAlgos(state *cliState, args []string) error {
	fs := flag.NewFlagSet("list-algos", flag.ContinueOnError)
	var input string
	fs.StringVar(&input, "i", "", "input database directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return errors.New("list-algos requires -i")
	}

	counts, err := dbops.ListAlgos(input, state.log)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("no blocks observed")
		return nil
	}
	for _, c := range counts {
		fmt.Printf("%-10s id=%-3d blocks=%d\n", c.Name, c.ID, c.Count)
	}
	return nil
}
