// Package exec applies a decoded instruction to CPU state: the register
// file, memory, and program counter, covering RV32I's full
// register-register/register-immediate/load/store/branch/jump repertoire.
package exec

import (
	"rv32sim/core"
	"rv32sim/decode"
)

// RegisterWrite records one register mutation performed while executing an
// instruction: the register index and its value before and after.
type RegisterWrite struct {
	Index int
	Old   core.Word
	New   core.Word
}

// Outcome reports what the executor did to control flow and to register
// state, so the driver knows how to advance (or not advance) the program
// counter and what to record in a trace entry.
type Outcome struct {
	NextPC core.Word
	Halted bool // ECALL/EBREAK executed
	EBreak bool // true specifically for EBREAK, false for ECALL
	Writes []RegisterWrite
}

// State is the minimal CPU state the executor needs: registers, memory,
// and the current PC. The simulator driver (package sim) embeds these.
type State struct {
	Regs *core.RegisterFile
	Mem  *core.Memory
	PC   core.Word
}

// Execute applies d, the already-decoded instruction fetched from pc, to
// st. It returns the outcome (including the next PC) or an ExecutionError
// for a faulting memory access. Writes to x0 are silently discarded by
// RegisterFile.Write; this function never special-cases rd == 0.
func Execute(st *State, d decode.Decoded) (Outcome, error) {
	pc := st.PC
	next := pc + 4

	var writes []RegisterWrite
	write := func(idx int, v core.Word) {
		old := st.Regs.Read(idx)
		st.Regs.Write(idx, v)
		writes = append(writes, RegisterWrite{Index: idx, Old: old, New: v})
	}

	switch d.Op {
	case decode.ADD:
		write(d.Rd, st.Regs.Read(d.Rs1)+st.Regs.Read(d.Rs2))
	case decode.SUB:
		write(d.Rd, st.Regs.Read(d.Rs1)-st.Regs.Read(d.Rs2))
	case decode.SLL:
		write(d.Rd, st.Regs.Read(d.Rs1)<<(st.Regs.Read(d.Rs2)&0x1f))
	case decode.SLT:
		write(d.Rd, boolWord(int32(st.Regs.Read(d.Rs1)) < int32(st.Regs.Read(d.Rs2))))
	case decode.SLTU:
		write(d.Rd, boolWord(st.Regs.Read(d.Rs1) < st.Regs.Read(d.Rs2)))
	case decode.XOR:
		write(d.Rd, st.Regs.Read(d.Rs1)^st.Regs.Read(d.Rs2))
	case decode.SRL:
		write(d.Rd, st.Regs.Read(d.Rs1)>>(st.Regs.Read(d.Rs2)&0x1f))
	case decode.SRA:
		write(d.Rd, core.Word(int32(st.Regs.Read(d.Rs1))>>(st.Regs.Read(d.Rs2)&0x1f)))
	case decode.OR:
		write(d.Rd, st.Regs.Read(d.Rs1)|st.Regs.Read(d.Rs2))
	case decode.AND:
		write(d.Rd, st.Regs.Read(d.Rs1)&st.Regs.Read(d.Rs2))

	case decode.ADDI:
		write(d.Rd, st.Regs.Read(d.Rs1)+core.Word(d.Imm))
	case decode.SLTI:
		write(d.Rd, boolWord(int32(st.Regs.Read(d.Rs1)) < d.Imm))
	case decode.SLTIU:
		write(d.Rd, boolWord(st.Regs.Read(d.Rs1) < core.Word(d.Imm)))
	case decode.XORI:
		write(d.Rd, st.Regs.Read(d.Rs1)^core.Word(d.Imm))
	case decode.ORI:
		write(d.Rd, st.Regs.Read(d.Rs1)|core.Word(d.Imm))
	case decode.ANDI:
		write(d.Rd, st.Regs.Read(d.Rs1)&core.Word(d.Imm))
	case decode.SLLI:
		write(d.Rd, st.Regs.Read(d.Rs1)<<uint(d.Imm&0x1f))
	case decode.SRLI:
		write(d.Rd, st.Regs.Read(d.Rs1)>>uint(d.Imm&0x1f))
	case decode.SRAI:
		write(d.Rd, core.Word(int32(st.Regs.Read(d.Rs1))>>uint(d.Imm&0x1f)))

	case decode.LB, decode.LH, decode.LW, decode.LBU, decode.LHU:
		addr := st.Regs.Read(d.Rs1) + core.Word(d.Imm)
		val, err := execLoad(st.Mem, d.Op, addr)
		if err != nil {
			return Outcome{}, err
		}
		write(d.Rd, val)

	case decode.SB, decode.SH, decode.SW:
		addr := st.Regs.Read(d.Rs1) + core.Word(d.Imm)
		if err := execStore(st.Mem, d.Op, addr, st.Regs.Read(d.Rs2)); err != nil {
			return Outcome{}, err
		}

	case decode.BEQ, decode.BNE, decode.BLT, decode.BGE, decode.BLTU, decode.BGEU:
		if branchTaken(d.Op, st.Regs.Read(d.Rs1), st.Regs.Read(d.Rs2)) {
			next = pc + core.Word(d.Imm)
		}

	case decode.JAL:
		write(d.Rd, pc+4)
		next = pc + core.Word(d.Imm)

	case decode.JALR:
		target := (st.Regs.Read(d.Rs1) + core.Word(d.Imm)) &^ 1
		write(d.Rd, pc+4)
		next = target

	case decode.LUI:
		write(d.Rd, core.Word(d.Imm))

	case decode.AUIPC:
		write(d.Rd, pc+core.Word(d.Imm))

	case decode.ECALL:
		return Outcome{NextPC: pc + 4, Halted: true}, nil

	case decode.EBREAK:
		return Outcome{NextPC: pc + 4, Halted: true, EBreak: true}, nil

	default:
		return Outcome{}, &core.ExecutionError{Kind: core.IllegalInstruction, PC: pc, Word: d.Raw, Msg: "executor has no handler for this op"}
	}

	return Outcome{NextPC: next, Writes: writes}, nil
}

func boolWord(b bool) core.Word {
	if b {
		return 1
	}
	return 0
}

func branchTaken(op decode.Op, a, b core.Word) bool {
	switch op {
	case decode.BEQ:
		return a == b
	case decode.BNE:
		return a != b
	case decode.BLT:
		return int32(a) < int32(b)
	case decode.BGE:
		return int32(a) >= int32(b)
	case decode.BLTU:
		return a < b
	case decode.BGEU:
		return a >= b
	default:
		panic("exec: branchTaken called with a non-branch op")
	}
}

func execLoad(mem *core.Memory, op decode.Op, addr core.Word) (core.Word, error) {
	switch op {
	case decode.LB:
		v, err := mem.ReadByte(addr)
		if err != nil {
			return 0, err
		}
		return core.SignExtend(uint32(v), 8), nil
	case decode.LBU:
		v, err := mem.ReadByte(addr)
		if err != nil {
			return 0, err
		}
		return core.Word(v), nil
	case decode.LH:
		v, err := mem.ReadHalf(addr)
		if err != nil {
			return 0, err
		}
		return core.SignExtend(uint32(v), 16), nil
	case decode.LHU:
		v, err := mem.ReadHalf(addr)
		if err != nil {
			return 0, err
		}
		return core.Word(v), nil
	case decode.LW:
		return mem.ReadWord(addr)
	default:
		panic("exec: execLoad called with a non-load op")
	}
}

func execStore(mem *core.Memory, op decode.Op, addr core.Word, value core.Word) error {
	switch op {
	case decode.SB:
		return mem.WriteByte(addr, byte(value))
	case decode.SH:
		return mem.WriteHalf(addr, uint16(value))
	case decode.SW:
		return mem.WriteWord(addr, value)
	default:
		panic("exec: execStore called with a non-store op")
	}
}
