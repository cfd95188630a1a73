// Package proc implements process control: launching or attaching to
// an x86-64 Linux inferior, resuming and single-stepping it, and
// installing software breakpoints, all through ptrace(2).
package proc

import (
	"os"
	"os/exec"
	"runtime"
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/fanyingfx/sdb/breakpoint"
	"github.com/fanyingfx/sdb/internal/regs"
	"github.com/fanyingfx/sdb/internal/sdberr"
	"github.com/fanyingfx/sdb/internal/sdblog"
	"github.com/fanyingfx/sdb/internal/sdbval"
)

// addrNoRandomize is the personality(2) flag that disables ASLR for
// the calling process and anything it subsequently execs, mirroring
// the original's personality(ADDR_NO_RANDOMIZE) call made in the
// forked child just before exec. Go's os/exec gives no hook to run
// code between fork and exec, so this is instead flipped on the
// locked calling thread immediately around cmd.Start and restored
// right after, relying on the fact that a freshly forked child
// inherits its parent's personality at the moment of fork.
const addrNoRandomize = 0x0040000
const getPersonality = 0xffffffff

// Process represents one traced inferior: its pid, lifecycle state,
// register bank, and breakpoint registry.
type Process struct {
	pid            int
	state          State
	isAttached     bool
	terminateOnEnd bool

	regs        *regs.Bank
	breakpoints *breakpoint.Registry

	ptraceChan     chan func()
	ptraceDoneChan chan struct{}
}

func newProcess(pid int) *Process {
	p := &Process{
		pid:            pid,
		state:          StateStopped,
		breakpoints:    breakpoint.NewRegistry(),
		ptraceChan:     make(chan func()),
		ptraceDoneChan: make(chan struct{}),
	}
	p.regs = regs.New(pid)
	p.regs.Run = p.execPtraceFunc
	go p.handlePtraceFuncs()
	return p
}

// handlePtraceFuncs runs on a single locked OS thread for the
// process's whole lifetime: ptrace requires every call after
// PTRACE_ATTACH/PTRACE_TRACEME to come from the thread that issued it.
func (p *Process) handlePtraceFuncs() {
	runtime.LockOSThread()
	for fn := range p.ptraceChan {
		fn()
		p.ptraceDoneChan <- struct{}{}
	}
}

func (p *Process) execPtraceFunc(fn func()) {
	p.ptraceChan <- fn
	<-p.ptraceDoneChan
}

// Launch starts path and, if debug is true, traces it and stops it at
// its first instruction, the way process::launch does: fork, TRACEME,
// exec, then wait for the initial SIGTRAP. If stdoutReplacement is
// non-nil, the child's stdout is redirected there instead of
// inherited, for capturing output in tests.
func Launch(path string, debug bool, stdoutReplacement *os.File) (*Process, error) {
	p := newProcess(0)

	var cmd *exec.Cmd
	var startErr error
	p.execPtraceFunc(func() {
		oldPersonality, _, err := syscall.Syscall(sys.SYS_PERSONALITY, getPersonality, 0, 0)
		havePersonality := err == syscall.Errno(0)
		if havePersonality {
			syscall.Syscall(sys.SYS_PERSONALITY, oldPersonality|addrNoRandomize, 0, 0)
			defer syscall.Syscall(sys.SYS_PERSONALITY, oldPersonality, 0, 0)
		}

		cmd = exec.Command(path)
		if stdoutReplacement != nil {
			cmd.Stdout = stdoutReplacement
		} else {
			cmd.Stdout = os.Stdout
		}
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: debug, Setpgid: true}
		startErr = cmd.Start()
	})
	if startErr != nil {
		return nil, sdberr.SendErrno("exec failed", startErr)
	}

	p.pid = cmd.Process.Pid
	p.isAttached = debug
	p.terminateOnEnd = true
	p.regs = regs.New(p.pid)
	p.regs.Run = p.execPtraceFunc

	if debug {
		if _, err := p.WaitOnSignal(); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Attach attaches to an already-running process by pid, mirroring
// process::attach.
func Attach(pid int) (*Process, error) {
	if pid == 0 {
		return nil, sdberr.Send("Invalid PID")
	}
	p := newProcess(pid)
	p.isAttached = true
	p.terminateOnEnd = false

	var err error
	p.execPtraceFunc(func() { err = sys.PtraceAttach(pid) })
	if err != nil {
		return nil, sdberr.SendErrno("Could not attach", err)
	}

	if _, err := p.WaitOnSignal(); err != nil {
		return nil, err
	}
	return p, nil
}

// Pid returns the inferior's process id.
func (p *Process) Pid() int { return p.pid }

// State returns the process's last observed lifecycle state.
func (p *Process) State() State { return p.state }

// Registers returns the register bank backing this process. Values
// are only current immediately after WaitOnSignal reports StateStopped.
func (p *Process) Registers() *regs.Bank { return p.regs }

// Breakpoints returns the registry of software breakpoint sites
// installed in this process.
func (p *Process) Breakpoints() *breakpoint.Registry { return p.breakpoints }

// PC returns the instruction pointer from the most recently read
// register snapshot.
func (p *Process) PC() VirtAddr { return VirtAddr(p.regs.PC()) }

func (p *Process) setPC(addr VirtAddr) error {
	p.regs.SetPC(uint64(addr))
	return p.regs.WriteByID(regs.Rip, sdbval.U64(uint64(addr)))
}

// Close tears the process down the way ~process() does: if attached
// and still running, stop it, detach, and let it continue; if we
// launched it ourselves, kill it outright. Syscall failures here are
// logged and otherwise suppressed, mirroring the destructor this is
// grounded on, which has no error return to report them through.
func (p *Process) Close() error {
	if p.pid == 0 {
		return nil
	}
	logTeardownErr := func(action string, err error) {
		if err != nil && sdblog.Proc() {
			sdblog.ProcLogger().Debugf("teardown: %s failed for pid %d: %v", action, p.pid, err)
		}
	}
	if p.isAttached {
		if p.state == StateRunning {
			logTeardownErr("SIGSTOP", syscall.Kill(p.pid, syscall.SIGSTOP))
			var ws syscall.WaitStatus
			_, err := syscall.Wait4(p.pid, &ws, 0, nil)
			logTeardownErr("wait after SIGSTOP", err)
		}
		p.execPtraceFunc(func() { logTeardownErr("PTRACE_DETACH", sys.PtraceDetach(p.pid)) })
		logTeardownErr("SIGCONT", syscall.Kill(p.pid, syscall.SIGCONT))
	}
	if p.terminateOnEnd {
		logTeardownErr("SIGKILL", syscall.Kill(p.pid, syscall.SIGKILL))
		var ws syscall.WaitStatus
		_, err := syscall.Wait4(p.pid, &ws, 0, nil)
		logTeardownErr("wait after SIGKILL", err)
	}
	close(p.ptraceChan)
	p.pid = 0
	return nil
}

// Resume lets the inferior run, stepping over an enabled breakpoint at
// the current PC first so it doesn't immediately retrap on its own
// INT3, mirroring process::resume.
func (p *Process) Resume() error {
	pc := p.PC()
	if p.breakpoints.EnabledStoppointAtAddress(pc) {
		site, err := p.breakpoints.GetByAddress(pc)
		if err != nil {
			return err
		}
		if err := site.Disable(); err != nil {
			return err
		}
		if err := p.singleStepAndWait(); err != nil {
			return err
		}
		if err := site.Enable(); err != nil {
			return err
		}
	}

	var err error
	p.execPtraceFunc(func() { err = sys.PtraceCont(p.pid, 0) })
	if err != nil {
		return sdberr.SendErrno("Could not resume", err)
	}
	p.state = StateRunning
	if sdblog.Proc() {
		sdblog.ProcLogger().Debugf("resumed pid %d", p.pid)
	}
	return nil
}

func (p *Process) singleStepAndWait() error {
	var err error
	p.execPtraceFunc(func() { err = sys.PtraceSingleStep(p.pid) })
	if err != nil {
		return sdberr.SendErrno("Failed to single step", err)
	}
	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(p.pid, &ws, 0, nil); err != nil {
		return sdberr.SendErrno("waitpid failed", err)
	}
	return nil
}

// WaitOnSignal blocks until the inferior's status changes, updating
// state and, on a stop, refreshing registers and rewinding PC past any
// breakpoint's INT3 byte, mirroring process::wait_on_signal.
func (p *Process) WaitOnSignal() (StopReason, error) {
	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(p.pid, &ws, 0, nil); err != nil {
		return StopReason{}, sdberr.SendErrno("waitpid failed", err)
	}

	reason := stopReasonFromWaitStatus(ws)
	p.state = reason.Reason

	if p.isAttached && p.state == StateStopped {
		if err := p.regs.ReadAll(); err != nil {
			return StopReason{}, err
		}
		instrBegin := p.PC().Add(-1)
		if reason.Info == int(syscall.SIGTRAP) && p.breakpoints.EnabledStoppointAtAddress(instrBegin) {
			if err := p.setPC(instrBegin); err != nil {
				return StopReason{}, err
			}
		}
	}
	return reason, nil
}

func stopReasonFromWaitStatus(ws syscall.WaitStatus) StopReason {
	switch {
	case ws.Exited():
		return StopReason{Reason: StateExited, Info: ws.ExitStatus()}
	case ws.Signaled():
		return StopReason{Reason: StateTerminated, Info: int(ws.Signal())}
	case ws.Stopped():
		return StopReason{Reason: StateStopped, Info: int(ws.StopSignal())}
	default:
		return StopReason{Reason: StateStopped, Info: 0}
	}
}

// StepInstruction executes exactly one instruction, temporarily
// disabling any breakpoint installed at the current PC, mirroring
// process::step_instruction.
func (p *Process) StepInstruction() (StopReason, error) {
	pc := p.PC()
	var toReenable *breakpoint.Site
	if p.breakpoints.EnabledStoppointAtAddress(pc) {
		site, err := p.breakpoints.GetByAddress(pc)
		if err != nil {
			return StopReason{}, err
		}
		if err := site.Disable(); err != nil {
			return StopReason{}, err
		}
		toReenable = site
	}

	var err error
	p.execPtraceFunc(func() { err = sys.PtraceSingleStep(p.pid) })
	if err != nil {
		return StopReason{}, sdberr.SendErrno("Could not single step", err)
	}

	reason, err := p.WaitOnSignal()
	if err != nil {
		return StopReason{}, err
	}
	if toReenable != nil {
		if err := toReenable.Enable(); err != nil {
			return StopReason{}, err
		}
	}
	return reason, nil
}

// CreateBreakpointSite installs a new software breakpoint site at
// address, disabled until Enable is called.
func (p *Process) CreateBreakpointSite(address VirtAddr) (*breakpoint.Site, error) {
	return p.breakpoints.Push(p, address)
}

// ReadMemory reads size bytes from the inferior's address space via
// PTRACE_PEEKDATA, implementing breakpoint.MemoryAccess.
func (p *Process) ReadMemory(addr VirtAddr, size int) ([]byte, error) {
	buf := make([]byte, size)
	var err error
	p.execPtraceFunc(func() { _, err = sys.PtracePeekData(p.pid, uintptr(addr), buf) })
	if err != nil {
		return nil, sdberr.SendErrno("Could not read memory", err)
	}
	return buf, nil
}

// WriteMemory writes data into the inferior's address space via
// PTRACE_POKEDATA, implementing breakpoint.MemoryAccess.
func (p *Process) WriteMemory(addr VirtAddr, data []byte) error {
	var err error
	p.execPtraceFunc(func() { _, err = sys.PtracePokeData(p.pid, uintptr(addr), data) })
	if err != nil {
		return sdberr.SendErrno("Could not write memory", err)
	}
	return nil
}
