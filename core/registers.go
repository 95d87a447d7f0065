package core

// RegisterCount is the number of architectural general-purpose registers.
const RegisterCount = 32

// RegisterFile holds the 32 architectural registers. x0 is hardwired to
// zero: Write(0, _) is a no-op and Read(0) always returns 0, regardless of
// what was ever written. This discipline lives here, and only here — the
// executor stays free of per-instruction x0 checks.
type RegisterFile struct {
	regs [RegisterCount]Word
}

// Read returns the value of register i. i outside 0..31 is a programmer
// error, not a runtime-recoverable one.
func (r *RegisterFile) Read(i int) Word {
	if i == 0 {
		return 0
	}
	return r.regs[i]
}

// Write stores v into register i, unless i is 0.
func (r *RegisterFile) Write(i int, v Word) {
	if i == 0 {
		return
	}
	r.regs[i] = v
}

// Reset zeroes every register.
func (r *RegisterFile) Reset() {
	for i := range r.regs {
		r.regs[i] = 0
	}
}

// Snapshot copies out all 32 register values.
func (r *RegisterFile) Snapshot() [RegisterCount]Word {
	out := r.regs
	out[0] = 0
	return out
}

// RegisterTag describes what role a register plays, for display purposes
// only — it has no effect on read/write semantics.
type RegisterTag byte

const (
	RegisterTagZero RegisterTag = 1 << iota
	RegisterTagReturnAddress
	RegisterTagStackPointer
	RegisterTagGlobalPointer
	RegisterTagThreadPointer
	RegisterTagTemporary
	RegisterTagSaved
	RegisterTagArgument
)

// RegisterInfo is static metadata about one architectural register: its
// canonical ABI name and a one-line description of its calling-convention
// role. Index into the table returned by RegisterMetadata() with the
// register number to look one up.
type RegisterInfo struct {
	Number int
	ABI    string
	Desc   string
	Tags   RegisterTag
}

// RegisterMetadata returns the ABI name and role of every one of the 32
// registers, indexed by register number.
func RegisterMetadata() [RegisterCount]RegisterInfo {
	saved := func(n int) string {
		names := []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"}
		return names[n]
	}
	temp := func(n int) string {
		names := []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6"}
		return names[n]
	}
	arg := func(n int) string {
		names := []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
		return names[n]
	}

	var out [RegisterCount]RegisterInfo
	out[0] = RegisterInfo{0, "zero", "hardwired zero", RegisterTagZero}
	out[1] = RegisterInfo{1, "ra", "return address", RegisterTagReturnAddress}
	out[2] = RegisterInfo{2, "sp", "stack pointer", RegisterTagStackPointer}
	out[3] = RegisterInfo{3, "gp", "global pointer", RegisterTagGlobalPointer}
	out[4] = RegisterInfo{4, "tp", "thread pointer", RegisterTagThreadPointer}
	out[5] = RegisterInfo{5, temp(0), "temporary", RegisterTagTemporary}
	out[6] = RegisterInfo{6, temp(1), "temporary", RegisterTagTemporary}
	out[7] = RegisterInfo{7, temp(2), "temporary", RegisterTagTemporary}
	out[8] = RegisterInfo{8, "s0/fp", "saved register / frame pointer", RegisterTagSaved}
	out[9] = RegisterInfo{9, saved(1), "saved register", RegisterTagSaved}
	for i := 0; i < 8; i++ {
		out[10+i] = RegisterInfo{10 + i, arg(i), "argument register", RegisterTagArgument}
	}
	for i := 2; i < 12; i++ {
		out[16+i] = RegisterInfo{16 + i, saved(i), "saved register", RegisterTagSaved}
	}
	for i := 3; i < 7; i++ {
		out[25+i] = RegisterInfo{25 + i, temp(i), "temporary", RegisterTagTemporary}
	}
	return out
}

// abiAliases lists ABI names which are not exactly the canonical name
// produced by RegisterMetadata but which operand parsing must still
// accept: "fp" as an alias for s0 is the only one in RV32I.
var abiAliases = map[string]int{"fp": 8}

// RegisterIndexByName resolves a register operand, numeric ("x0".."x31")
// or ABI ("zero", "ra", "sp", ... "fp"), to its register number. The
// second return value is false for anything else.
func RegisterIndexByName(name string) (int, bool) {
	if len(name) >= 2 && name[0] == 'x' {
		n, ok := parseRegisterDigits(name[1:])
		if ok && n >= 0 && n < RegisterCount {
			return n, true
		}
	}
	if n, ok := abiAliases[name]; ok {
		return n, true
	}
	for _, info := range RegisterMetadata() {
		if info.ABI == name {
			return info.Number, true
		}
		// out[8].ABI is "s0/fp"; also accept the bare "s0".
		if info.Number == 8 && name == "s0" {
			return 8, true
		}
	}
	return 0, false
}

func parseRegisterDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
