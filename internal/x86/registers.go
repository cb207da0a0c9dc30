// Package x86 holds the x86-64 System V register tables codegen reads
// from rather than hard-coding register names at call sites. Grounded
// on the teacher pack's architecture-description packages — the
// per-architecture register/operand tables in
// ajroetker-goat's amd64 and arm64 parsers, and the register-name map
// in rsc's x86 instruction-set package — generalized here to the one
// architecture Helium targets.
package x86

// ArgRegs is the System V AMD64 ABI integer argument-passing order for
// a normal function call (System V ABI §3.2.3): up to six integer/
// pointer arguments go in these registers before any spill to the
// stack. Helium only ever emits calls with at most six arguments, so
// codegen never needs the stack-spill case.
var ArgRegs = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// SyscallRegs is the Linux x86-64 syscall argument order. Note the 4th
// slot is r10, not rcx: the syscall instruction clobbers rcx (it holds
// the return address), so the kernel ABI substitutes r10 in that
// position while keeping the first three and last two the same as the
// C calling convention.
var SyscallRegs = [6]string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}

// SyscallNumberReg holds the syscall number, and receives the return
// value, exactly as in the System V syscall convention.
const SyscallNumberReg = "rax"

// ReturnReg holds a function's scalar/pointer return value, per the
// System V ABI's RAX return-value rule.
const ReturnReg = "rax"

// FramePointerReg and StackPointerReg name the two registers codegen's
// prologue/epilogue save and restore around every function body.
const (
	FramePointerReg = "rbp"
	StackPointerReg = "rsp"
)
