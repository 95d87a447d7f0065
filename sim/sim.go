// Package sim drives the decode/exec loop against an assembled program: it
// owns memory, registers, and PC as one value, tracks the {Idle, Loaded,
// Running, Halted, Errored} state machine, and records a trace of executed
// instructions loaded from the assembler's text-to-bytes pipeline.
package sim

import (
	"rv32sim/asm"
	"rv32sim/core"
	"rv32sim/decode"
	"rv32sim/exec"
)

// State is the simulator's coarse lifecycle state.
type State int

const (
	Idle State = iota
	Loaded
	Running
	Halted
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Loaded:
		return "Loaded"
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	case Errored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// HaltReason distinguishes why a Running simulator stopped.
type HaltReason int

const (
	HaltReasonNone HaltReason = iota
	HaltReasonECall
	HaltReasonEBreak
	HaltReasonBudgetExhausted
	HaltReasonEndOfProgram
)

func (h HaltReason) String() string {
	switch h {
	case HaltReasonNone:
		return "None"
	case HaltReasonECall:
		return "ECall"
	case HaltReasonEBreak:
		return "EBreak"
	case HaltReasonBudgetExhausted:
		return "BudgetExhausted"
	case HaltReasonEndOfProgram:
		return "EndOfProgram"
	default:
		return "Unknown"
	}
}

// DefaultBudget is the instruction count Run executes before giving up
// with HaltReasonBudgetExhausted.
const DefaultBudget = 10000

// TraceEntry records one executed instruction, for display and for the
// driver's recent_trace in a Snapshot: the PC it was fetched from, the
// encoded word, its mnemonic, and every register write it performed.
type TraceEntry struct {
	PC       core.Word
	Word     core.Word
	Mnemonic string
	Op       decode.Op
	Writes   []exec.RegisterWrite
}

// Simulator is one RV32I machine: memory, registers, PC, and the bookkeeping
// needed to drive it one instruction (Step) or many (Run) at a time.
type Simulator struct {
	Regs *core.RegisterFile
	Mem  *core.Memory
	PC   core.Word

	state      State
	haltReason HaltReason
	err        error

	programBytes uint32 // byte length of the most recently loaded program
	executed     uint64
	trace        []TraceEntry

	budget int
}

// New creates a simulator with the given memory size and default run
// budget, in the Idle state with no program loaded.
func New(memSize uint32) *Simulator {
	return &Simulator{
		Regs:   &core.RegisterFile{},
		Mem:    core.NewMemory(memSize),
		state:  Idle,
		budget: DefaultBudget,
	}
}

// SetBudget overrides the default instruction budget Run enforces.
func (s *Simulator) SetBudget(n int) {
	s.budget = n
}

// State reports the simulator's current lifecycle state.
func (s *Simulator) State() State {
	return s.state
}

// HaltReason reports why a Halted simulator stopped; HaltReasonNone if not
// halted.
func (s *Simulator) HaltReason() HaltReason {
	return s.haltReason
}

// Err reports the fault that put the simulator into Errored, if any.
func (s *Simulator) Err() error {
	return s.err
}

// Load assembles text, resets memory/registers/PC, writes the resulting
// words at address 0, and transitions to Loaded. On assemble failure the
// simulator is left untouched — no partial program is ever installed.
func (s *Simulator) Load(text string) error {
	code, err := asm.Assemble(text)
	if err != nil {
		return err
	}

	s.Mem.Reset()
	s.Regs.Reset()
	s.PC = 0
	s.executed = 0
	s.trace = nil
	s.err = nil
	s.haltReason = HaltReasonNone

	if err := s.Mem.WriteBytes(0, code); err != nil {
		return err
	}
	s.programBytes = uint32(len(code))
	s.state = Loaded
	return nil
}

// fault transitions the simulator to Errored, stamping err with the
// faulting instruction's PC and encoded word. Decode and memory errors
// raised while executing an instruction know only the address they were
// checking (for a load/store, that's the data address, not the PC); Step
// is the one place that knows which instruction was actually being
// executed, so it overwrites those fields here rather than trusting them
// from the callee.
func (s *Simulator) fault(word core.Word, err error) {
	if ee, ok := err.(*core.ExecutionError); ok {
		ee.PC = s.PC
		ee.Word = word
	}
	s.state = Errored
	s.err = err
}

// Step executes exactly one instruction and appends a trace entry. It is
// only meaningful from Loaded or Halted (to resume after a budget-limited
// Run, callers transition back through Running implicitly); Step from
// Errored or a program-complete Halted does nothing useful.
func (s *Simulator) Step() error {
	if s.PC >= s.programBytes {
		s.state = Halted
		s.haltReason = HaltReasonEndOfProgram
		return nil
	}

	s.state = Running

	word, err := s.Mem.ReadWord(s.PC)
	if err != nil {
		s.state = Errored
		s.err = err
		return err
	}

	d, err := decode.Decode(word)
	if err != nil {
		s.fault(word, err)
		return err
	}

	out, err := exec.Execute(&exec.State{Regs: s.Regs, Mem: s.Mem, PC: s.PC}, d)
	if err != nil {
		s.fault(word, err)
		return err
	}

	s.trace = append(s.trace, TraceEntry{PC: s.PC, Word: word, Mnemonic: d.Op.String(), Op: d.Op, Writes: out.Writes})
	s.executed++
	s.PC = out.NextPC

	if out.Halted {
		s.state = Halted
		if out.EBreak {
			s.haltReason = HaltReasonEBreak
		} else {
			s.haltReason = HaltReasonECall
		}
	}
	return nil
}

// Run steps until the simulator leaves Running: a halt, a fault, or the
// instruction budget (maxInstructions; 0 means use the simulator's
// configured default) is exhausted.
func (s *Simulator) Run(maxInstructions int) error {
	budget := maxInstructions
	if budget <= 0 {
		budget = s.budget
	}

	for i := 0; i < budget; i++ {
		if err := s.Step(); err != nil {
			return err
		}
		if s.state != Running {
			return nil
		}
	}

	s.state = Halted
	s.haltReason = HaltReasonBudgetExhausted
	return nil
}

// Reset returns the simulator to Idle: no program, no fault, no trace.
// Memory and registers are cleared, but the run budget persists.
func (s *Simulator) Reset() {
	s.Mem.Reset()
	s.Regs.Reset()
	s.PC = 0
	s.executed = 0
	s.programBytes = 0
	s.trace = nil
	s.err = nil
	s.haltReason = HaltReasonNone
	s.state = Idle
}

// Snapshot is the observable state exposed to callers: the driver,
// test harnesses, or the debug printer.
type Snapshot struct {
	PC                   core.Word
	Registers            [core.RegisterCount]core.Word
	State                State
	HaltReason           HaltReason
	InstructionsExecuted uint64
	RecentTrace          []TraceEntry
	Err                  error
}

// recentTraceLimit bounds how much trace history Snapshot reports.
const recentTraceLimit = 32

// Snapshot captures the simulator's current observable state.
func (s *Simulator) Snapshot() Snapshot {
	trace := s.trace
	if len(trace) > recentTraceLimit {
		trace = trace[len(trace)-recentTraceLimit:]
	}
	recent := make([]TraceEntry, len(trace))
	copy(recent, trace)

	return Snapshot{
		PC:                   s.PC,
		Registers:            s.Regs.Snapshot(),
		State:                s.state,
		HaltReason:           s.haltReason,
		InstructionsExecuted: s.executed,
		RecentTrace:          recent,
		Err:                  s.err,
	}
}

// ReadMemory copies out a run of bytes, for test harnesses and external
// callers that need to inspect memory without stepping the machine.
func (s *Simulator) ReadMemory(addr core.Word, n uint32) ([]byte, error) {
	return s.Mem.ReadBytes(addr, n)
}

// WriteMemory copies a run of bytes in, for test harnesses and external
// callers that need to seed or patch memory directly.
func (s *Simulator) WriteMemory(addr core.Word, data []byte) error {
	return s.Mem.WriteBytes(addr, data)
}
