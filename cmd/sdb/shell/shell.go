// Package shell implements the sdb interactive command loop: reading
// lines via internal/readline, resolving them to a command by unique
// prefix through a trie, and dispatching to the proc/breakpoint/regs
// packages.
package shell

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/derekparker/trie"
	"github.com/mattn/go-isatty"

	"github.com/fanyingfx/sdb/breakpoint"
	"github.com/fanyingfx/sdb/cmd/sdb/config"
	"github.com/fanyingfx/sdb/internal/readline"
	"github.com/fanyingfx/sdb/internal/regs"
	"github.com/fanyingfx/sdb/internal/sdberr"
	"github.com/fanyingfx/sdb/internal/sdblog"
	"github.com/fanyingfx/sdb/internal/sdbval"
	"github.com/fanyingfx/sdb/proc"
)

const prompt = "sdb> "

type cmdFunc func(s *Shell, args []string) error

type command struct {
	name string
	fn   cmdFunc
}

// Shell owns one Process and the trie used to resolve a typed prefix
// to one of the commands below.
type Shell struct {
	process *proc.Process
	cmds    map[string]command
	dict    *trie.Trie
	cfg     *config.Config
}

// New builds a shell around an already-launched-or-attached process.
func New(process *proc.Process) *Shell {
	s := &Shell{
		process: process,
		cmds:    make(map[string]command),
		dict:    trie.New(),
		cfg:     config.LoadConfig(),
	}
	s.register("continue", handleContinue)
	s.register("help", handleHelp)
	s.register("register", handleRegisterCommand)
	s.register("breakpoint", handleBreakpointCommand)
	s.register("step", handleStep)

	if s.cfg != nil {
		for canonical, aliases := range s.cfg.Aliases {
			cmd, ok := s.cmds[canonical]
			if !ok {
				continue
			}
			for _, alias := range aliases {
				s.dict.Add(alias, nil)
				s.cmds[alias] = cmd
			}
		}
	}
	return s
}

func (s *Shell) register(name string, fn cmdFunc) {
	s.dict.Add(name, nil)
	s.cmds[name] = command{name: name, fn: fn}
}

// resolve maps a typed token to its command by unique prefix, the way
// the original's is_prefix scan did it one alias at a time; the trie
// gives the same answer in O(len(token)) and fails cleanly on an
// ambiguous or unknown prefix.
func (s *Shell) resolve(token string) (command, error) {
	if cmd, ok := s.cmds[token]; ok {
		return cmd, nil
	}
	matches := s.dict.PrefixSearch(token)
	switch len(matches) {
	case 0:
		return command{}, sdberr.Sendf("Unknown command %q", token)
	case 1:
		return s.cmds[matches[0]], nil
	default:
		return command{}, sdberr.Sendf("Ambiguous command %q (matches %s)", token, strings.Join(matches, ", "))
	}
}

func (s *Shell) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, err := s.resolve(fields[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if sdblog.REPL() {
		sdblog.REPLLogger().Debugf("dispatch %s %v", cmd.name, fields[1:])
	}
	if err := cmd.fn(s, fields); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

// Run drives the read-eval-print loop until EOF (Ctrl-D), mirroring
// sdb.cpp's main_loop: an empty line repeats the last non-empty line
// read from history instead of doing nothing.
func (s *Shell) Run() {
	showPrompt := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())

	historyFile, err := config.GetConfigFilePath("history")
	if err != nil {
		logFailure("resolve history file path", err)
	} else {
		readline.LoadHistoryFromFile(historyFile)
		if sdblog.REPL() {
			sdblog.REPLLogger().Debugf("loaded %d history entries from %s", readline.HistoryLen(), historyFile)
		}
		defer func() {
			if err := readline.WriteHistoryToFile(historyFile); err != nil {
				logFailure("write history file", err)
			}
		}()
	}

	if s.cfg != nil {
		for _, line := range s.cfg.OnLaunch {
			s.dispatch(line)
		}
	}

	p := ""
	if showPrompt {
		p = prompt
	}
	for {
		line := readline.ReadLine(p)
		if line == nil {
			return
		}
		text := strings.TrimSpace(*line)
		if text == "" {
			text = readline.LastHistoryLine()
		} else {
			readline.AddHistory(text)
		}
		if text == "" {
			continue
		}
		s.dispatch(text)
	}
}

func logFailure(action string, err error) {
	if sdblog.REPL() {
		sdblog.REPLLogger().Debugf("shell: %s failed: %v", action, err)
	}
}

// signalAbbrev names a signal the way glibc's sigabbrev_np does
// ("TRAP", "SEGV", ...), which the Go standard library has no direct
// equivalent for.
func signalAbbrev(sig int) string {
	switch syscall.Signal(sig) {
	case syscall.SIGHUP:
		return "HUP"
	case syscall.SIGINT:
		return "INT"
	case syscall.SIGQUIT:
		return "QUIT"
	case syscall.SIGILL:
		return "ILL"
	case syscall.SIGTRAP:
		return "TRAP"
	case syscall.SIGABRT:
		return "ABRT"
	case syscall.SIGBUS:
		return "BUS"
	case syscall.SIGFPE:
		return "FPE"
	case syscall.SIGKILL:
		return "KILL"
	case syscall.SIGUSR1:
		return "USR1"
	case syscall.SIGSEGV:
		return "SEGV"
	case syscall.SIGUSR2:
		return "USR2"
	case syscall.SIGPIPE:
		return "PIPE"
	case syscall.SIGALRM:
		return "ALRM"
	case syscall.SIGTERM:
		return "TERM"
	case syscall.SIGCHLD:
		return "CHLD"
	case syscall.SIGCONT:
		return "CONT"
	case syscall.SIGSTOP:
		return "STOP"
	case syscall.SIGTSTP:
		return "TSTP"
	default:
		return strconv.Itoa(sig)
	}
}

func handleContinue(s *Shell, args []string) error {
	if err := s.process.Resume(); err != nil {
		return err
	}
	reason, err := s.process.WaitOnSignal()
	if err != nil {
		return err
	}
	printStopReason(s.process, reason)
	return nil
}

func handleStep(s *Shell, args []string) error {
	reason, err := s.process.StepInstruction()
	if err != nil {
		return err
	}
	printStopReason(s.process, reason)
	return nil
}

func printStopReason(p *proc.Process, reason proc.StopReason) {
	var message string
	switch reason.Reason {
	case proc.StateExited:
		message = fmt.Sprintf("exited with status %d", reason.Info)
	case proc.StateTerminated:
		message = fmt.Sprintf("terminated with signal %s", signalAbbrev(reason.Info))
	case proc.StateStopped:
		message = fmt.Sprintf("stopped with signal %s at %s", signalAbbrev(reason.Info), p.PC())
	default:
		message = "running"
	}
	fmt.Printf("Process %d %s\n", p.Pid(), message)
}

func handleHelp(s *Shell, args []string) error {
	if len(args) == 1 {
		fmt.Fprint(os.Stderr, `Available commands:
breakpoint  - Commands for operating on breakpoints
continue    - Resume the process
register    - Commands for operating on registers
step        - Step over a single instruction
`)
		return nil
	}
	cmd, err := s.resolve(args[1])
	if err != nil {
		return err
	}
	switch cmd.name {
	case "register":
		fmt.Fprint(os.Stderr, `Available commands:
read
read <register>
read all
write <register> <value>
`)
	case "breakpoint":
		fmt.Fprint(os.Stderr, `Available commands:
list
delete <id>
disable <id>
enable <id>
set <address>
`)
	}
	return nil
}

func formatRegisterValue(info regs.Info, v sdbval.Value) string {
	return v.FormatAs(info.Format, info.Size)
}

func handleRegisterRead(s *Shell, args []string) error {
	printOne := func(info regs.Info) error {
		v, err := s.process.Registers().ReadByID(info.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\t%s\n", info.Name, formatRegisterValue(info, v))
		return nil
	}

	switch {
	case len(args) == 2, len(args) == 3 && args[2] == "all":
		for _, info := range regs.All() {
			showAll := len(args) == 3
			if !showAll && info.Class != regs.ClassGPR {
				continue
			}
			if info.Name == "orig_rax" {
				continue
			}
			if err := printOne(info); err != nil {
				return err
			}
		}
		return nil
	case len(args) == 3:
		info, ok := regs.ByName(args[2])
		if !ok {
			fmt.Fprintln(os.Stderr, "No such register")
			return nil
		}
		return printOne(info)
	default:
		return handleHelp(s, []string{"help", "register"})
	}
}

func handleRegisterWrite(s *Shell, args []string) error {
	if len(args) != 4 {
		return handleHelp(s, []string{"help", "register"})
	}
	info, ok := regs.ByName(args[2])
	if !ok {
		return sdberr.Sendf("No such register")
	}
	v, err := sdbval.Parse(info.Format, info.Size, args[3])
	if err != nil {
		return err
	}
	return s.process.Registers().WriteByID(info.ID, v)
}

func handleRegisterCommand(s *Shell, args []string) error {
	if len(args) < 2 {
		return handleHelp(s, []string{"help", "register"})
	}
	switch {
	case strings.HasPrefix("read", args[1]):
		return handleRegisterRead(s, args)
	case strings.HasPrefix("write", args[1]):
		return handleRegisterWrite(s, args)
	default:
		return handleHelp(s, []string{"help", "register"})
	}
}

func handleBreakpointCommand(s *Shell, args []string) error {
	if len(args) < 2 {
		return handleHelp(s, []string{"help", "breakpoint"})
	}
	command := args[1]
	if strings.HasPrefix("list", command) {
		bps := s.process.Breakpoints()
		if bps.Empty() {
			fmt.Println("No breakpoints set")
			return nil
		}
		fmt.Println("Current breakpoints:")
		bps.ForEach(func(site *breakpoint.Site) {
			state := "disabled"
			if site.IsEnabled() {
				state = "enabled"
			}
			fmt.Printf("%d: address = %s, %s\n", site.ID(), site.Address(), state)
		})
		return nil
	}
	if len(args) < 3 {
		return handleHelp(s, []string{"help", "breakpoint"})
	}
	if strings.HasPrefix("set", command) {
		addr, err := strconv.ParseUint(strings.TrimPrefix(args[2], "0x"), 16, 64)
		if err != nil {
			return sdberr.Send("Breakpoint command expects address in hexadecimal, prefixed with '0x'")
		}
		site, err := s.process.CreateBreakpointSite(proc.VirtAddr(addr))
		if err != nil {
			return err
		}
		return site.Enable()
	}

	id, err := strconv.Atoi(args[2])
	if err != nil {
		return sdberr.Send("Command expects breakpoint id")
	}
	switch {
	case strings.HasPrefix("enable", command):
		site, err := s.process.Breakpoints().GetByID(id)
		if err != nil {
			return err
		}
		return site.Enable()
	case strings.HasPrefix("disable", command):
		site, err := s.process.Breakpoints().GetByID(id)
		if err != nil {
			return err
		}
		return site.Disable()
	case strings.HasPrefix("delete", command):
		return s.process.Breakpoints().RemoveByID(id)
	}
	return nil
}
