// Package decode identifies RV32I instructions from 32-bit words and
// reconstructs their sign-extended immediates, and provides the bit-field
// inverse (encoding) the assembler needs to pack a Decoded back down to a
// word, dispatching across RV32I's six instruction formats.
package decode

// Op identifies a specific RV32I operation, independent of how it happens
// to be encoded.
type Op int

const (
	ADD Op = iota
	SUB
	SLL
	SLT
	SLTU
	XOR
	SRL
	SRA
	OR
	AND
	ADDI
	SLTI
	SLTIU
	XORI
	ORI
	ANDI
	SLLI
	SRLI
	SRAI
	LB
	LH
	LW
	LBU
	LHU
	SB
	SH
	SW
	BEQ
	BNE
	BLT
	BGE
	BLTU
	BGEU
	JAL
	JALR
	LUI
	AUIPC
	ECALL
	EBREAK
)

// Format is one of the six RV32I instruction encodings.
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Desc is the static encoding descriptor for one operation: the opcode,
// funct3, and (where applicable) funct7 bit patterns that identify it, its
// format, and its canonical mnemonic. This table is the single source of
// truth for both Decode and Encode.
type Desc struct {
	Op       Op
	Mnemonic string
	Format   Format
	Opcode   uint32
	Funct3   uint32
	Funct7   uint32
}

// Opcode values (bits 6:0), one per instruction format/group.
const (
	opcodeR      = 0b0110011
	opcodeI      = 0b0010011
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeBranch = 0b1100011
	opcodeJAL    = 0b1101111
	opcodeJALR   = 0b1100111
	opcodeLUI    = 0b0110111
	opcodeAUIPC  = 0b0010111
	opcodeSystem = 0b1110011
)

// Descs enumerates every RV32I instruction this simulator supports.
var Descs = []Desc{
	{ADD, "add", FormatR, opcodeR, 0b000, 0b0000000},
	{SUB, "sub", FormatR, opcodeR, 0b000, 0b0100000},
	{SLL, "sll", FormatR, opcodeR, 0b001, 0b0000000},
	{SLT, "slt", FormatR, opcodeR, 0b010, 0b0000000},
	{SLTU, "sltu", FormatR, opcodeR, 0b011, 0b0000000},
	{XOR, "xor", FormatR, opcodeR, 0b100, 0b0000000},
	{SRL, "srl", FormatR, opcodeR, 0b101, 0b0000000},
	{SRA, "sra", FormatR, opcodeR, 0b101, 0b0100000},
	{OR, "or", FormatR, opcodeR, 0b110, 0b0000000},
	{AND, "and", FormatR, opcodeR, 0b111, 0b0000000},

	{ADDI, "addi", FormatI, opcodeI, 0b000, 0},
	{SLTI, "slti", FormatI, opcodeI, 0b010, 0},
	{SLTIU, "sltiu", FormatI, opcodeI, 0b011, 0},
	{XORI, "xori", FormatI, opcodeI, 0b100, 0},
	{ORI, "ori", FormatI, opcodeI, 0b110, 0},
	{ANDI, "andi", FormatI, opcodeI, 0b111, 0},
	{SLLI, "slli", FormatI, opcodeI, 0b001, 0b0000000},
	{SRLI, "srli", FormatI, opcodeI, 0b101, 0b0000000},
	{SRAI, "srai", FormatI, opcodeI, 0b101, 0b0100000},

	{LB, "lb", FormatI, opcodeLoad, 0b000, 0},
	{LH, "lh", FormatI, opcodeLoad, 0b001, 0},
	{LW, "lw", FormatI, opcodeLoad, 0b010, 0},
	{LBU, "lbu", FormatI, opcodeLoad, 0b100, 0},
	{LHU, "lhu", FormatI, opcodeLoad, 0b101, 0},

	{SB, "sb", FormatS, opcodeStore, 0b000, 0},
	{SH, "sh", FormatS, opcodeStore, 0b001, 0},
	{SW, "sw", FormatS, opcodeStore, 0b010, 0},

	{BEQ, "beq", FormatB, opcodeBranch, 0b000, 0},
	{BNE, "bne", FormatB, opcodeBranch, 0b001, 0},
	{BLT, "blt", FormatB, opcodeBranch, 0b100, 0},
	{BGE, "bge", FormatB, opcodeBranch, 0b101, 0},
	{BLTU, "bltu", FormatB, opcodeBranch, 0b110, 0},
	{BGEU, "bgeu", FormatB, opcodeBranch, 0b111, 0},

	{JAL, "jal", FormatJ, opcodeJAL, 0, 0},
	{JALR, "jalr", FormatI, opcodeJALR, 0b000, 0},

	{LUI, "lui", FormatU, opcodeLUI, 0, 0},
	{AUIPC, "auipc", FormatU, opcodeAUIPC, 0, 0},

	{ECALL, "ecall", FormatI, opcodeSystem, 0b000, 0},
	{EBREAK, "ebreak", FormatI, opcodeSystem, 0b000, 0},
}

var byMnemonic = func() map[string]Desc {
	m := make(map[string]Desc, len(Descs))
	for _, d := range Descs {
		m[d.Mnemonic] = d
	}
	return m
}()

var byOp = func() map[Op]Desc {
	m := make(map[Op]Desc, len(Descs))
	for _, d := range Descs {
		m[d.Op] = d
	}
	return m
}()

// DescByMnemonic looks up an instruction descriptor by its lowercase
// mnemonic ("add", "addi", "lw", ...).
func DescByMnemonic(mnemonic string) (Desc, bool) {
	d, ok := byMnemonic[mnemonic]
	return d, ok
}

// DescByOp looks up an instruction descriptor by its Op.
func DescByOp(op Op) Desc {
	d, ok := byOp[op]
	if !ok {
		panic("decode: no descriptor for op")
	}
	return d
}

func (op Op) String() string {
	return DescByOp(op).Mnemonic
}
