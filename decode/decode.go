package decode

import "rv32sim/core"

// Decoded is the result of identifying one 32-bit word: its operation, the
// register fields relevant to that operation, and its reconstructed
// immediate (already sign-extended, except for SLLI/SRLI/SRAI where Imm
// instead holds the 0..31 shift amount).
type Decoded struct {
	Op     Op
	Format Format
	Rd     int
	Rs1    int
	Rs2    int
	Imm    int32
	Raw    core.Word
}

func illegal(word core.Word, msg string) error {
	return &core.ExecutionError{Kind: core.IllegalInstruction, Word: word, Msg: msg}
}

// Decode identifies the instruction encoded by word and reconstructs its
// operands. Unrecognized encodings fail with IllegalInstruction.
func Decode(word core.Word) (Decoded, error) {
	opcode := word & 0x7f
	rd := int((word >> 7) & 0x1f)
	funct3 := (word >> 12) & 0x7
	rs1 := int((word >> 15) & 0x1f)
	rs2 := int((word >> 20) & 0x1f)
	funct7 := (word >> 25) & 0x7f

	switch opcode {
	case opcodeR:
		op, ok := lookupR(funct3, funct7)
		if !ok {
			return Decoded{}, illegal(word, "unrecognized funct3/funct7 for R-type")
		}
		return Decoded{Op: op, Format: FormatR, Rd: rd, Rs1: rs1, Rs2: rs2, Raw: word}, nil

	case opcodeI:
		switch funct3 {
		case 0b001: // SLLI
			if funct7 != 0 {
				return Decoded{}, illegal(word, "bad funct7 for SLLI")
			}
			return Decoded{Op: SLLI, Format: FormatI, Rd: rd, Rs1: rs1, Imm: int32(rs2), Raw: word}, nil
		case 0b101: // SRLI/SRAI
			switch funct7 {
			case 0b0000000:
				return Decoded{Op: SRLI, Format: FormatI, Rd: rd, Rs1: rs1, Imm: int32(rs2), Raw: word}, nil
			case 0b0100000:
				return Decoded{Op: SRAI, Format: FormatI, Rd: rd, Rs1: rs1, Imm: int32(rs2), Raw: word}, nil
			default:
				return Decoded{}, illegal(word, "bad funct7 for SRLI/SRAI")
			}
		default:
			op, ok := lookupI(funct3)
			if !ok {
				return Decoded{}, illegal(word, "unrecognized funct3 for I-type")
			}
			return Decoded{Op: op, Format: FormatI, Rd: rd, Rs1: rs1, Imm: decodeIImm(word), Raw: word}, nil
		}

	case opcodeLoad:
		op, ok := lookupLoad(funct3)
		if !ok {
			return Decoded{}, illegal(word, "unrecognized funct3 for load")
		}
		return Decoded{Op: op, Format: FormatI, Rd: rd, Rs1: rs1, Imm: decodeIImm(word), Raw: word}, nil

	case opcodeStore:
		op, ok := lookupStore(funct3)
		if !ok {
			return Decoded{}, illegal(word, "unrecognized funct3 for store")
		}
		return Decoded{Op: op, Format: FormatS, Rs1: rs1, Rs2: rs2, Imm: decodeSImm(word), Raw: word}, nil

	case opcodeBranch:
		op, ok := lookupBranch(funct3)
		if !ok {
			return Decoded{}, illegal(word, "unrecognized funct3 for branch")
		}
		return Decoded{Op: op, Format: FormatB, Rs1: rs1, Rs2: rs2, Imm: decodeBImm(word), Raw: word}, nil

	case opcodeJAL:
		return Decoded{Op: JAL, Format: FormatJ, Rd: rd, Imm: decodeJImm(word), Raw: word}, nil

	case opcodeJALR:
		if funct3 != 0 {
			return Decoded{}, illegal(word, "bad funct3 for JALR")
		}
		return Decoded{Op: JALR, Format: FormatI, Rd: rd, Rs1: rs1, Imm: decodeIImm(word), Raw: word}, nil

	case opcodeLUI:
		return Decoded{Op: LUI, Format: FormatU, Rd: rd, Imm: decodeUImm(word), Raw: word}, nil

	case opcodeAUIPC:
		return Decoded{Op: AUIPC, Format: FormatU, Rd: rd, Imm: decodeUImm(word), Raw: word}, nil

	case opcodeSystem:
		if funct3 != 0 {
			return Decoded{}, illegal(word, "bad funct3 for system instruction")
		}
		switch (word >> 20) & 0xfff {
		case 0:
			return Decoded{Op: ECALL, Format: FormatI, Raw: word}, nil
		case 1:
			return Decoded{Op: EBREAK, Format: FormatI, Raw: word}, nil
		default:
			return Decoded{}, illegal(word, "unrecognized system instruction")
		}

	default:
		return Decoded{}, illegal(word, "unrecognized opcode")
	}
}

// Encode is the bit-field inverse of Decode: given an operation and its
// operands, it packs the 32-bit instruction word.
func Encode(d Decoded) core.Word {
	desc := DescByOp(d.Op)
	switch desc.Format {
	case FormatR:
		return desc.Funct7<<25 | uint32(d.Rs2)<<20 | uint32(d.Rs1)<<15 | desc.Funct3<<12 | uint32(d.Rd)<<7 | desc.Opcode
	case FormatI:
		switch d.Op {
		case SLLI, SRLI, SRAI:
			return desc.Funct7<<25 | (uint32(d.Imm)&0x1f)<<20 | uint32(d.Rs1)<<15 | desc.Funct3<<12 | uint32(d.Rd)<<7 | desc.Opcode
		case ECALL:
			return desc.Opcode
		case EBREAK:
			return 1<<20 | desc.Opcode
		default:
			return encodeIImm(d.Imm) | uint32(d.Rs1)<<15 | desc.Funct3<<12 | uint32(d.Rd)<<7 | desc.Opcode
		}
	case FormatS:
		return encodeSImm(d.Imm) | uint32(d.Rs2)<<20 | uint32(d.Rs1)<<15 | desc.Funct3<<12 | desc.Opcode
	case FormatB:
		return encodeBImm(d.Imm) | uint32(d.Rs2)<<20 | uint32(d.Rs1)<<15 | desc.Funct3<<12 | desc.Opcode
	case FormatU:
		return encodeUImm(d.Imm) | uint32(d.Rd)<<7 | desc.Opcode
	case FormatJ:
		return encodeJImm(d.Imm) | uint32(d.Rd)<<7 | desc.Opcode
	default:
		panic("decode: unhandled format in Encode")
	}
}

func lookupR(funct3, funct7 uint32) (Op, bool) {
	for _, d := range Descs {
		if d.Format == FormatR && d.Funct3 == funct3 && d.Funct7 == funct7 {
			return d.Op, true
		}
	}
	return 0, false
}

func lookupI(funct3 uint32) (Op, bool) {
	for _, op := range []Op{ADDI, SLTI, SLTIU, XORI, ORI, ANDI} {
		if DescByOp(op).Funct3 == funct3 {
			return op, true
		}
	}
	return 0, false
}

func lookupLoad(funct3 uint32) (Op, bool) {
	for _, op := range []Op{LB, LH, LW, LBU, LHU} {
		if DescByOp(op).Funct3 == funct3 {
			return op, true
		}
	}
	return 0, false
}

func lookupStore(funct3 uint32) (Op, bool) {
	for _, op := range []Op{SB, SH, SW} {
		if DescByOp(op).Funct3 == funct3 {
			return op, true
		}
	}
	return 0, false
}

func lookupBranch(funct3 uint32) (Op, bool) {
	for _, op := range []Op{BEQ, BNE, BLT, BGE, BLTU, BGEU} {
		if DescByOp(op).Funct3 == funct3 {
			return op, true
		}
	}
	return 0, false
}

// --- Immediate reconstruction, one function per format: a single
// table/expression per format, never ad-hoc masks per call site. Each
// decode function has an exact inverse encode function below.

func decodeIImm(word core.Word) int32 {
	raw := (word >> 20) & 0xfff
	return int32(core.SignExtend(raw, 12))
}

func encodeIImm(imm int32) uint32 {
	return (uint32(imm) & 0xfff) << 20
}

func decodeSImm(word core.Word) int32 {
	imm11_5 := (word >> 25) & 0x7f
	imm4_0 := (word >> 7) & 0x1f
	raw := imm11_5<<5 | imm4_0
	return int32(core.SignExtend(raw, 12))
}

func encodeSImm(imm int32) uint32 {
	u := uint32(imm) & 0xfff
	return (u>>5)<<25 | (u&0x1f)<<7
}

func decodeBImm(word core.Word) int32 {
	imm12 := (word >> 31) & 0x1
	imm11 := (word >> 7) & 0x1
	imm10_5 := (word >> 25) & 0x3f
	imm4_1 := (word >> 8) & 0xf
	raw := imm12<<12 | imm11<<11 | imm10_5<<5 | imm4_1<<1
	return int32(core.SignExtend(raw, 13))
}

func encodeBImm(imm int32) uint32 {
	u := uint32(imm) & 0x1fff
	imm12 := (u >> 12) & 0x1
	imm11 := (u >> 11) & 0x1
	imm10_5 := (u >> 5) & 0x3f
	imm4_1 := (u >> 1) & 0xf
	return imm12<<31 | imm10_5<<25 | imm4_1<<8 | imm11<<7
}

func decodeUImm(word core.Word) int32 {
	return int32(word & 0xfffff000)
}

func encodeUImm(imm int32) uint32 {
	return uint32(imm) & 0xfffff000
}

func decodeJImm(word core.Word) int32 {
	imm20 := (word >> 31) & 0x1
	imm19_12 := (word >> 12) & 0xff
	imm11 := (word >> 20) & 0x1
	imm10_1 := (word >> 21) & 0x3ff
	raw := imm20<<20 | imm19_12<<12 | imm11<<11 | imm10_1<<1
	return int32(core.SignExtend(raw, 21))
}

func encodeJImm(imm int32) uint32 {
	u := uint32(imm) & 0x1fffff
	imm20 := (u >> 20) & 0x1
	imm10_1 := (u >> 1) & 0x3ff
	imm11 := (u >> 11) & 0x1
	imm19_12 := (u >> 12) & 0xff
	return imm20<<31 | imm19_12<<12 | imm11<<20 | imm10_1<<21
}
