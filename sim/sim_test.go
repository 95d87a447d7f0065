package sim

import (
	"testing"

	"rv32sim/core"
)

// TestAddTwoConstants is scenario 1: halted, x1=10, x2=20, x3=30, PC=16.
func TestAddTwoConstants(t *testing.T) {
	s := New(4096)
	prog := `
		addi x1, x0, 10
		addi x2, x0, 20
		add x3, x1, x2
		ecall
	`
	if err := s.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.State != Halted {
		t.Fatalf("state = %v, want Halted", snap.State)
	}
	if snap.Registers[1] != 10 || snap.Registers[2] != 20 || snap.Registers[3] != 30 {
		t.Fatalf("registers = %v", snap.Registers[:4])
	}
	if snap.PC != 16 {
		t.Errorf("PC = %d, want 16", snap.PC)
	}
}

// TestSignExtendedImmediate is scenario 2: x1 = 0xFFFFFFFF.
func TestSignExtendedImmediate(t *testing.T) {
	s := New(4096)
	if err := s.Load("addi x1, x0, -1\necall\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Registers[1]; got != 0xFFFFFFFF {
		t.Errorf("x1 = %#x, want 0xFFFFFFFF", got)
	}
}

// TestFibonacciBranchLoop is scenario 3: ten iterations of a backwards
// branch computing Fibonacci numbers, halted with x11 = 89 (fib(10)).
func TestFibonacciBranchLoop(t *testing.T) {
	s := New(4096)
	prog := `
		addi x10, x0, 10   # counter
		addi x11, x0, 1    # fib(n)
		addi x12, x0, 0    # fib(n-1)
		addi x13, x0, 0    # scratch
	loop:
		beq x10, x0, done
		add x13, x11, x12
		add x12, x0, x11
		add x11, x0, x13
		addi x10, x10, -1
		jal x0, loop
	done:
		ecall
	`
	if err := s.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.State != Halted {
		t.Fatalf("state = %v (err=%v)", snap.State, snap.Err)
	}
	if snap.Registers[11] != 89 {
		t.Errorf("x11 = %d, want 89", snap.Registers[11])
	}
	if snap.Registers[10] != 0 {
		t.Errorf("x10 (loop counter) = %d, want 0", snap.Registers[10])
	}
}

// TestStoreLoadSignExtension is scenario 4.
func TestStoreLoadSignExtension(t *testing.T) {
	s := New(4096)
	prog := `
		addi x1, x0, -1
		sw x1, 0(x0)
		lb x2, 0(x0)
		lbu x3, 0(x0)
		ecall
	`
	if err := s.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Registers[2] != 0xFFFFFFFF {
		t.Errorf("x2 = %#x, want 0xFFFFFFFF", snap.Registers[2])
	}
	if snap.Registers[3] != 0x000000FF {
		t.Errorf("x3 = %#x, want 0xFF", snap.Registers[3])
	}
}

// TestJALLinkRegister is scenario 5.
func TestJALLinkRegister(t *testing.T) {
	s := New(4096)
	prog := `
		jal x1, target
		addi x5, x0, 999
		addi x6, x0, 999
	target:
		ecall
	`
	if err := s.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Registers[1] != 4 {
		t.Errorf("x1 = %d, want 4", snap.Registers[1])
	}
	if snap.PC != 16 {
		t.Errorf("PC = %d, want 16 (ecall at target advances PC by 4)", snap.PC)
	}
	if snap.Registers[5] != 0 || snap.Registers[6] != 0 {
		t.Errorf("skipped instructions executed: x5=%d x6=%d", snap.Registers[5], snap.Registers[6])
	}
}

// TestMisalignedLoad is scenario 6.
func TestMisalignedLoad(t *testing.T) {
	s := New(4096)
	if err := s.Load("lw x1, 1(x0)\necall\n"); err != nil {
		t.Fatal(err)
	}
	_ = s.Run(0)
	snap := s.Snapshot()
	if snap.State != Errored {
		t.Fatalf("state = %v, want Errored", snap.State)
	}
	execErr, ok := snap.Err.(*core.ExecutionError)
	if !ok || execErr.Kind != core.MemoryAlignment {
		t.Fatalf("err = %v, want MemoryAlignment", snap.Err)
	}
}

func TestEndOfProgramHalts(t *testing.T) {
	s := New(4096)
	if err := s.Load("addi x1, x0, 1\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.State != Halted || snap.HaltReason != HaltReasonEndOfProgram {
		t.Errorf("state=%v reason=%v, want Halted/EndOfProgram", snap.State, snap.HaltReason)
	}
}

func TestBudgetExhausted(t *testing.T) {
	s := New(4096)
	prog := "loop: jal x0, loop\n"
	if err := s.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(5); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.HaltReason != HaltReasonBudgetExhausted {
		t.Errorf("haltReason = %v, want BudgetExhausted", snap.HaltReason)
	}
	if snap.InstructionsExecuted != 5 {
		t.Errorf("instructions executed = %d, want 5", snap.InstructionsExecuted)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	s := New(4096)
	if err := s.Load("addi x1, x0, 1\necall\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(0); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if s.State() != Idle {
		t.Errorf("state after Reset = %v, want Idle", s.State())
	}
	if s.Snapshot().Registers[1] != 0 {
		t.Errorf("registers not cleared after Reset")
	}
}
