package asm

import (
	"testing"

	"rv32sim/core"
	"rv32sim/decode"
)

func wordAt(t *testing.T, code []byte, addr int) core.Word {
	t.Helper()
	if addr+4 > len(code) {
		t.Fatalf("address %d out of range (len=%d)", addr, len(code))
	}
	return core.Word(code[addr]) | core.Word(code[addr+1])<<8 |
		core.Word(code[addr+2])<<16 | core.Word(code[addr+3])<<24
}

func TestAssembleSimpleProgram(t *testing.T) {
	code, err := Assemble("addi x1, x0, 10\naddi x2, x0, 20\nadd x3, x1, x2\necall\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 16 {
		t.Fatalf("len(code) = %d, want 16", len(code))
	}
	d, err := decode.Decode(wordAt(t, code, 0))
	if err != nil {
		t.Fatal(err)
	}
	if d.Op != decode.ADDI || d.Rd != 1 || d.Imm != 10 {
		t.Errorf("first word decoded wrong: %+v", d)
	}
}

func TestAssembleCaseInsensitiveMnemonic(t *testing.T) {
	lower, err := Assemble("addi x1, x0, 5\necall\n")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := Assemble("ADDI x1, x0, 5\nECALL\n")
	if err != nil {
		t.Fatal(err)
	}
	if string(lower) != string(upper) {
		t.Errorf("case-insensitive mnemonics produced different code")
	}
}

func TestAssembleLabelAndBranch(t *testing.T) {
	code, err := Assemble(`
start:
	addi x1, x0, 1
	beq x1, x0, start
	ecall
`)
	if err != nil {
		t.Fatal(err)
	}
	d, err := decode.Decode(wordAt(t, code, 4))
	if err != nil {
		t.Fatal(err)
	}
	if d.Op != decode.BEQ || d.Imm != -4 {
		t.Errorf("branch to start: got %+v, want Imm=-4", d)
	}
}

func TestAssembleUnknownRegisterFails(t *testing.T) {
	_, err := Assemble("addi x1, x99, 1\necall\n")
	if err == nil {
		t.Fatal("expected error for unknown register")
	}
	if ae, ok := err.(*core.AssembleError); !ok || ae.Kind != core.UnknownRegister {
		t.Fatalf("got %v, want UnknownRegister", err)
	}
}

func TestAssembleUnknownLabelFails(t *testing.T) {
	_, err := Assemble("jal x0, nowhere\necall\n")
	if err == nil {
		t.Fatal("expected error for unknown label")
	}
	if ae, ok := err.(*core.AssembleError); !ok || ae.Kind != core.UnknownLabel {
		t.Fatalf("got %v, want UnknownLabel", err)
	}
}

func TestAssembleDuplicateLabelFails(t *testing.T) {
	_, err := Assemble("foo: addi x1, x0, 1\nfoo: addi x2, x0, 2\necall\n")
	if err == nil {
		t.Fatal("expected error for duplicate label")
	}
	if ae, ok := err.(*core.AssembleError); !ok || ae.Kind != core.DuplicateLabel {
		t.Fatalf("got %v, want DuplicateLabel", err)
	}
}

func TestAssembleImmediateOutOfRangeFails(t *testing.T) {
	_, err := Assemble("addi x1, x0, 4096\necall\n")
	if err == nil {
		t.Fatal("expected error for out-of-range immediate")
	}
	if ae, ok := err.(*core.AssembleError); !ok || ae.Kind != core.ImmediateOutOfRange {
		t.Fatalf("got %v, want ImmediateOutOfRange", err)
	}
}

func TestAssembleOperandCountMismatchFails(t *testing.T) {
	_, err := Assemble("add x1, x2\necall\n")
	if err == nil {
		t.Fatal("expected error for wrong operand count")
	}
	if ae, ok := err.(*core.AssembleError); !ok || ae.Kind != core.OperandCountMismatch {
		t.Fatalf("got %v, want OperandCountMismatch", err)
	}
}

func TestAssembleMemoryOperandSyntax(t *testing.T) {
	code, err := Assemble("lw x1, -4(x2)\necall\n")
	if err != nil {
		t.Fatal(err)
	}
	d, err := decode.Decode(wordAt(t, code, 0))
	if err != nil {
		t.Fatal(err)
	}
	if d.Op != decode.LW || d.Rs1 != 2 || d.Imm != -4 {
		t.Errorf("got %+v", d)
	}
}

func TestAssembleHexAndBinaryLiterals(t *testing.T) {
	code, err := Assemble("addi x1, x0, 0x7f\naddi x2, x0, 0b101\necall\n")
	if err != nil {
		t.Fatal(err)
	}
	d1, _ := decode.Decode(wordAt(t, code, 0))
	d2, _ := decode.Decode(wordAt(t, code, 4))
	if d1.Imm != 0x7f {
		t.Errorf("hex literal: got %d, want 127", d1.Imm)
	}
	if d2.Imm != 5 {
		t.Errorf("binary literal: got %d, want 5", d2.Imm)
	}
}

func TestAssembleWordDirective(t *testing.T) {
	code, err := Assemble(".word 0x11223344\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 4 {
		t.Fatalf("len(code) = %d, want 4", len(code))
	}
	if got := wordAt(t, code, 0); got != 0x11223344 {
		t.Errorf("got %#x, want 0x11223344", got)
	}
}

func TestAssembleObjectWithExternAndGlobal(t *testing.T) {
	obj, err := AssembleObject("a.s", `
	.global entry
	.extern helper
entry:
	jal x1, helper
	ecall
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.Globals) != 1 || obj.Globals[0].Name != "entry" || obj.Globals[0].Value != 0 {
		t.Fatalf("globals = %+v", obj.Globals)
	}
	if len(obj.Externs) != 1 || obj.Externs[0] != "helper" {
		t.Fatalf("externs = %+v", obj.Externs)
	}
	if len(obj.Relocations) != 1 || obj.Relocations[0].Symbol != "helper" || obj.Relocations[0].Type != RelocRelative {
		t.Fatalf("relocations = %+v", obj.Relocations)
	}
}

func TestObjectEncodeDecodeRoundTrip(t *testing.T) {
	obj, err := AssembleObject("a.s", ".global entry\nentry:\n\taddi x1, x0, 1\n\tecall\n")
	if err != nil {
		t.Fatal(err)
	}
	data := obj.Encode()
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Code) != string(obj.Code) {
		t.Errorf("code mismatch after round trip")
	}
	if len(got.Globals) != 1 || got.Globals[0].Name != "entry" {
		t.Errorf("globals mismatch after round trip: %+v", got.Globals)
	}
}
