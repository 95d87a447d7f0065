package decode

import (
	"testing"

	"rv32sim/core"
)

func TestRoundTripAllFormats(t *testing.T) {
	var luiImm uint32 = 0xABCDE000
	cases := []Decoded{
		{Op: ADD, Format: FormatR, Rd: 3, Rs1: 1, Rs2: 2},
		{Op: SUB, Format: FormatR, Rd: 5, Rs1: 4, Rs2: 3},
		{Op: SRA, Format: FormatR, Rd: 1, Rs1: 2, Rs2: 3},
		{Op: ADDI, Format: FormatI, Rd: 1, Rs1: 0, Imm: -1},
		{Op: ADDI, Format: FormatI, Rd: 1, Rs1: 0, Imm: 2047},
		{Op: ADDI, Format: FormatI, Rd: 1, Rs1: 0, Imm: -2048},
		{Op: SLLI, Format: FormatI, Rd: 1, Rs1: 1, Imm: 7},
		{Op: SRAI, Format: FormatI, Rd: 1, Rs1: 1, Imm: 31},
		{Op: LW, Format: FormatI, Rd: 5, Rs1: 2, Imm: -4},
		{Op: SW, Format: FormatS, Rs1: 2, Rs2: 5, Imm: -4},
		{Op: BEQ, Format: FormatB, Rs1: 1, Rs2: 2, Imm: -16},
		{Op: BLT, Format: FormatB, Rs1: 1, Rs2: 2, Imm: 4094},
		{Op: LUI, Format: FormatU, Rd: 1, Imm: int32(luiImm)},
		{Op: AUIPC, Format: FormatU, Rd: 2, Imm: int32(0x00001000)},
		{Op: JAL, Format: FormatJ, Rd: 1, Imm: 1048574},
		{Op: JAL, Format: FormatJ, Rd: 0, Imm: -2},
		{Op: JALR, Format: FormatI, Rd: 1, Rs1: 2, Imm: -4},
		{Op: ECALL, Format: FormatI},
		{Op: EBREAK, Format: FormatI},
	}

	for _, want := range cases {
		word := Encode(want)
		got, err := Decode(word)
		if err != nil {
			t.Fatalf("Decode(%#x) for %v: %v", word, want.Op, err)
		}
		if got.Op != want.Op || got.Rd != want.Rd || got.Rs1 != want.Rs1 ||
			got.Rs2 != want.Rs2 || got.Imm != want.Imm {
			t.Errorf("round trip mismatch for %v: got %+v, want %+v (word=%#x)", want.Op, got, want, word)
		}
		if reencoded := Encode(got); reencoded != word {
			t.Errorf("re-encoding %v did not reproduce original word: got %#x want %#x", want.Op, reencoded, word)
		}
	}
}

func TestBImmediateBit11Vs12(t *testing.T) {
	// bit 11 vs bit 12 is the classic B-immediate off-by-one to catch.
	word := Encode(Decoded{Op: BEQ, Format: FormatB, Rs1: 1, Rs2: 2, Imm: -4096})
	d, err := Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if d.Imm != -4096 {
		t.Errorf("bit 12 (sign) mismatch: got %d", d.Imm)
	}

	word = Encode(Decoded{Op: BEQ, Format: FormatB, Rs1: 1, Rs2: 2, Imm: 2048})
	d, err = Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if d.Imm != 2048 {
		t.Errorf("bit 11 mismatch: got %d", d.Imm)
	}
}

func TestIllegalOpcode(t *testing.T) {
	_, err := Decode(0x7f) // all opcode bits set, not a valid RV32I opcode
	if err == nil {
		t.Fatal("expected IllegalInstruction error")
	}
	execErr, ok := err.(*core.ExecutionError)
	if !ok || execErr.Kind != core.IllegalInstruction {
		t.Fatalf("expected IllegalInstruction, got %v", err)
	}
}

func TestLUIImmediateRoundTripFullRange(t *testing.T) {
	// U-type immediates span the whole upper 20 bits, sign bit included;
	// each one must come back from Encode/Decode with only its low 12
	// bits cleared. (ADD wrap-around is tested in the exec package.)
	for _, imm := range []int32{0, int32(0x7FFFF000), int32(-1) << 31, -1 &^ 0xFFF} {
		word := Encode(Decoded{Op: LUI, Format: FormatU, Rd: 1, Imm: imm})
		d, err := Decode(word)
		if err != nil {
			t.Fatal(err)
		}
		if d.Imm != imm&^0xFFF {
			t.Errorf("LUI imm mismatch: got %#x want %#x", d.Imm, imm&^0xFFF)
		}
	}
}
