package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fanyingfx/sdb/cmd/sdb/shell"
	"github.com/fanyingfx/sdb/internal/sdblog"
	"github.com/fanyingfx/sdb/proc"
)

var pid int

func main() {
	if len(os.Args) == 1 {
		fmt.Fprintln(os.Stderr, "No arguments given")
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "sdb <program>",
		Short: "sdb is a minimal native-process debugger for x86-64 Linux.",
		Args:  cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(run(args))
		},
	}
	rootCmd.Flags().IntVarP(&pid, "pid", "p", 0, "Attach to the running process with this pid instead of launching a program.")

	sdblog.Setup(os.Getenv("SDB_LOG"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) int {
	process, err := attachOrLaunch(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer process.Close()

	shell.New(process).Run()
	return 0
}

func attachOrLaunch(args []string) (*proc.Process, error) {
	if pid != 0 {
		return proc.Attach(pid)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("No program given")
	}
	p, err := proc.Launch(args[0], true, nil)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Launched process with PID %d\n", p.Pid())
	return p, nil
}
