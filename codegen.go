package helium

import (
	"fmt"
	"strings"

	"github.com/Quadsam/Helium/internal/x86"
)

// Codegen lowers a folded, reachability-marked Program into NASM text.
// It walks each reachable function's body once, grounded on the
// teacher's single-backend emitter shape in gen_go.go (a manual
// visit(node) type switch, no Accept/Visitor indirection) generalized
// from Go source text to x86-64 assembly text, and on
// grammar_compiler.go for per-function label/frame bookkeeping.
//
// The evaluation model is a stack machine: emitExpr always leaves
// exactly one value pushed on the machine stack (the x86 stack itself;
// there is no separate evaluation stack), so every expression-kind case
// below both starts and ends balanced the same way.
type Codegen struct {
	w        *asmWriter
	labels   *LabelAllocator
	structs  *StructRegistry
	source   []byte
	maxFrame int
	syms     *SymTab
}

// NewCodegen creates a code generator. structs must already be fully
// populated (parsing completes before codegen begins); source is the
// preprocessed buffer, reused for diagnostics.
func NewCodegen(structs *StructRegistry, source []byte, maxFrame int) *Codegen {
	return &Codegen{
		w:        newAsmWriter(),
		labels:   NewLabelAllocator(),
		structs:  structs,
		source:   source,
		maxFrame: maxFrame,
	}
}

func (c *Codegen) errf(pos Location, format string, args ...any) error {
	return NewDiagnostic(pos, c.source, format, args...)
}

// widthOf reports the storage width in bytes of a scalar type: 1 for
// char, 8 for everything else (int, ptr, or a struct name used as a
// base address). Array element width is this same width applied to the
// element type, so every non-char array element is 8 bytes regardless
// of the declared element type.
func (c *Codegen) widthOf(typeName string) int {
	if typeName == "char" {
		return 1
	}
	return 8
}

func (c *Codegen) isStructType(typeName string) bool {
	_, ok := c.structs.Lookup(typeName)
	return ok
}

func elementTypeOf(arrayTypeName string) string {
	return strings.TrimSuffix(arrayTypeName, "[]")
}

// frameAddr renders a frame-relative operand, e.g. "rbp-8", for use
// inside a NASM memory operand's brackets.
func (c *Codegen) frameAddr(offset int) string {
	return fmt.Sprintf("%s%d", x86.FramePointerReg, offset)
}

// Emit lowers every reachable function in prog to assembly text. Unreached
// functions (Function.Reachable == false, set by MarkReachable) are
// skipped entirely.
func (c *Codegen) Emit(prog *Program) ([]byte, error) {
	for _, fn := range prog.Functions {
		if !fn.Reachable {
			continue
		}
		if err := c.emitFunction(fn); err != nil {
			return nil, err
		}
	}
	return c.w.Bytes(), nil
}

// ---- functions ----

func lowByteReg(reg string) string {
	switch reg {
	case "rdi":
		return "dil"
	case "rsi":
		return "sil"
	case "rdx":
		return "dl"
	case "rcx":
		return "cl"
	case "r8":
		return "r8b"
	case "r9":
		return "r9b"
	default:
		return reg
	}
}

func (c *Codegen) storeParamReg(sym Symbol, reg string) {
	if c.widthOf(sym.TypeName) == 1 {
		c.w.insn(fmt.Sprintf("mov byte [%s], %s", c.frameAddr(sym.Offset), lowByteReg(reg)))
	} else {
		c.w.insn(fmt.Sprintf("mov [%s], %s", c.frameAddr(sym.Offset), reg))
	}
}

func (c *Codegen) emitFunction(fn *Function) error {
	entryName := fn.Name
	if fn.Name == "main" {
		entryName = "_start"
	}
	c.w.raw("global " + entryName)
	c.w.label(entryName)
	c.w.insn("push " + x86.FramePointerReg)
	c.w.insn(fmt.Sprintf("mov %s, %s", x86.FramePointerReg, x86.StackPointerReg))
	c.w.insn(fmt.Sprintf("sub %s, %d", x86.StackPointerReg, c.maxFrame))

	c.syms = NewSymTab(c.maxFrame)
	for i, param := range fn.Params {
		size, err := c.structs.SizeOf(param.TypeName)
		if err != nil {
			return c.errf(param.Pos(), "%s", err.Error())
		}
		sym := c.syms.Allocate(param.Name, param.TypeName, size, 0, param.Pos(), c.source)
		if i < len(x86.ArgRegs) {
			c.storeParamReg(sym, x86.ArgRegs[i])
		}
	}

	if err := c.emitBlock(fn.Body); err != nil {
		return err
	}

	// Fallthrough epilogue, for a body that doesn't end in an explicit
	// return on every path.
	c.w.insn(fmt.Sprintf("mov %s, %s", x86.StackPointerReg, x86.FramePointerReg))
	c.w.insn("pop " + x86.FramePointerReg)
	c.w.insn("ret")
	return nil
}

// ---- statements ----

func (c *Codegen) emitBlock(b *Block) error {
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if err := c.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codegen) emitStmt(n Node) error {
	switch t := n.(type) {
	case *VarDecl:
		return c.emitVarDecl(t)
	case *ArrayDecl:
		return c.emitArrayDecl(t)
	case *IfStmt:
		return c.emitIf(t)
	case *WhileStmt:
		return c.emitWhile(t)
	case *ForStmt:
		return c.emitFor(t)
	case *ReturnStmt:
		return c.emitReturn(t)
	case *ExprStmt:
		if err := c.emitExpr(t.Expr); err != nil {
			return err
		}
		c.w.insn("pop rax") // statement context: discard the expression's value
		return nil
	default:
		return c.errf(n.Pos(), "unsupported statement %T", n)
	}
}

func (c *Codegen) emitVarDecl(vd *VarDecl) error {
	size, err := c.structs.SizeOf(vd.TypeName)
	if err != nil {
		return c.errf(vd.Pos(), "%s", err.Error())
	}
	sym := c.syms.Allocate(vd.Name, vd.TypeName, size, 0, vd.Pos(), c.source)
	if vd.Init == nil || c.isStructType(vd.TypeName) {
		return nil // struct declarations and uninitialized scalars: reserve only
	}
	if err := c.emitExpr(vd.Init); err != nil {
		return err
	}
	c.w.insn("pop rbx")
	if c.widthOf(vd.TypeName) == 1 {
		c.w.insn(fmt.Sprintf("mov byte [%s], bl", c.frameAddr(sym.Offset)))
	} else {
		c.w.insn(fmt.Sprintf("mov [%s], rbx", c.frameAddr(sym.Offset)))
	}
	return nil
}

func (c *Codegen) emitArrayDecl(ad *ArrayDecl) error {
	elemWidth := c.widthOf(ad.ElemType)
	total := elemWidth * int(ad.Length)
	c.syms.Allocate(ad.Name, ad.ElemType+"[]", total, ad.Length, ad.Pos(), c.source)
	return nil
}

func (c *Codegen) emitIf(s *IfStmt) error {
	elseLabel := c.labels.Control()
	endLabel := c.labels.Control()

	if err := c.emitExpr(s.Cond); err != nil {
		return err
	}
	c.w.insn("pop rax")
	c.w.insn("cmp rax, 0")
	c.w.insn("je " + elseLabel)
	if err := c.emitBlock(s.Then); err != nil {
		return err
	}
	c.w.insn("jmp " + endLabel)
	c.w.label(elseLabel)
	if s.Else != nil {
		if err := c.emitBlock(s.Else); err != nil {
			return err
		}
	}
	c.w.label(endLabel)
	return nil
}

func (c *Codegen) emitWhile(s *WhileStmt) error {
	startLabel := c.labels.Control()
	endLabel := c.labels.Control()

	c.w.label(startLabel)
	if err := c.emitExpr(s.Cond); err != nil {
		return err
	}
	c.w.insn("pop rax")
	c.w.insn("cmp rax, 0")
	c.w.insn("je " + endLabel)
	if err := c.emitBlock(s.Body); err != nil {
		return err
	}
	c.w.insn("jmp " + startLabel)
	c.w.label(endLabel)
	return nil
}

// emitFor runs increment between the body and the next condition check,
// per spec.md §4.5, regardless of which of the two surface forms the
// parser desugared into this ForStmt.
func (c *Codegen) emitFor(s *ForStmt) error {
	if s.Init != nil {
		if err := c.emitStmt(s.Init); err != nil {
			return err
		}
	}

	startLabel := c.labels.Control()
	endLabel := c.labels.Control()

	c.w.label(startLabel)
	if s.Cond != nil {
		if err := c.emitExpr(s.Cond); err != nil {
			return err
		}
		c.w.insn("pop rax")
		c.w.insn("cmp rax, 0")
		c.w.insn("je " + endLabel)
	}
	if err := c.emitBlock(s.Body); err != nil {
		return err
	}
	if s.Increment != nil {
		if err := c.emitExpr(s.Increment); err != nil {
			return err
		}
		c.w.insn("pop rax")
	}
	c.w.insn("jmp " + startLabel)
	c.w.label(endLabel)
	return nil
}

func (c *Codegen) emitReturn(s *ReturnStmt) error {
	if s.Value != nil {
		if err := c.emitExpr(s.Value); err != nil {
			return err
		}
		c.w.insn("pop " + x86.ReturnReg) // System V ABI: scalar/pointer results return in rax
	}
	c.w.insn(fmt.Sprintf("mov %s, %s", x86.StackPointerReg, x86.FramePointerReg))
	c.w.insn("pop " + x86.FramePointerReg)
	c.w.insn("ret")
	return nil
}

// ---- l-value address computation, shared by reads, writes, and &/++ ----

// emitMemberAddr leaves the address of ma's member in rax and returns
// its layout. ma.Base must be a plain variable: either struct storage
// held inline in the frame (non-arrow) or a variable holding a pointer
// to struct storage elsewhere (arrow) — the declared type name doubles
// as the pointee struct name either way, since the language has no
// distinct "pointer-to-struct" type (see DESIGN.md).
func (c *Codegen) emitMemberAddr(ma *MemberAccess) (*StructMember, error) {
	baseRef, ok := ma.Base.(*VarRef)
	if !ok {
		return nil, c.errf(ma.Pos(), "member access base must be a plain variable")
	}
	sym, ok := c.syms.Lookup(baseRef.Name)
	if !ok {
		return nil, c.errf(baseRef.Pos(), "undefined variable %q", baseRef.Name)
	}
	def, ok := c.structs.Lookup(sym.TypeName)
	if !ok {
		return nil, c.errf(ma.Pos(), "%q is not a struct", baseRef.Name)
	}
	member, ok := def.Member(ma.Member)
	if !ok {
		return nil, c.errf(ma.Pos(), "struct %q has no member %q", sym.TypeName, ma.Member)
	}

	if ma.Arrow {
		c.w.insn(fmt.Sprintf("mov rax, [%s]", c.frameAddr(sym.Offset)))
		c.w.insn(fmt.Sprintf("add rax, %d", member.Offset))
	} else {
		c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset+member.Offset)))
	}
	return &member, nil
}

// emitLValueAddr leaves n's address in rax and returns its storage
// width, for the uses (&x, i++) that need an address without the
// specific store sequence an assignment target has.
func (c *Codegen) emitLValueAddr(n Node) (int, error) {
	switch t := n.(type) {
	case *VarRef:
		sym, ok := c.syms.Lookup(t.Name)
		if !ok {
			return 0, c.errf(t.Pos(), "undefined variable %q", t.Name)
		}
		c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset)))
		return c.widthOf(sym.TypeName), nil

	case *MemberAccess:
		member, err := c.emitMemberAddr(t)
		if err != nil {
			return 0, err
		}
		return c.widthOf(member.TypeName), nil

	case *Deref:
		if err := c.emitExpr(t.Target); err != nil {
			return 0, err
		}
		c.w.insn("pop rax")
		return 8, nil

	case *ArrayAccess:
		sym, ok := c.syms.Lookup(t.Name)
		if !ok {
			return 0, c.errf(t.Pos(), "undefined variable %q", t.Name)
		}
		width := c.widthOf(elementTypeOf(sym.TypeName))
		if err := c.emitExpr(t.Index); err != nil {
			return 0, err
		}
		c.w.insn("pop rbx")
		c.w.insn(fmt.Sprintf("imul rbx, %d", width))
		c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset)))
		c.w.insn("add rax, rbx")
		return width, nil

	default:
		return 0, c.errf(n.Pos(), "invalid l-value")
	}
}

// ---- assignment dispatch: one store sequence per l-value shape ----

func (c *Codegen) emitAssignPlain(ref *VarRef, value Node) error {
	sym, ok := c.syms.Lookup(ref.Name)
	if !ok {
		return c.errf(ref.Pos(), "undefined variable %q", ref.Name)
	}
	width := c.widthOf(sym.TypeName)

	// Fast path: an integer-literal right-hand side stores as an
	// immediate, with no push/pop round trip.
	if lit, ok := value.(*IntLit); ok {
		if width == 1 {
			c.w.insn(fmt.Sprintf("mov byte [%s], %d", c.frameAddr(sym.Offset), lit.Value))
		} else {
			c.w.insn(fmt.Sprintf("mov qword [%s], %d", c.frameAddr(sym.Offset), lit.Value))
		}
		c.w.insn(fmt.Sprintf("mov rax, %d", lit.Value))
		c.w.insn("push rax")
		return nil
	}

	if err := c.emitExpr(value); err != nil {
		return err
	}
	c.w.insn("pop rbx")
	if width == 1 {
		c.w.insn(fmt.Sprintf("mov byte [%s], bl", c.frameAddr(sym.Offset)))
	} else {
		c.w.insn(fmt.Sprintf("mov [%s], rbx", c.frameAddr(sym.Offset)))
	}
	c.w.insn("push rbx")
	return nil
}

func (c *Codegen) emitAssignMember(ma *MemberAccess, value Node) error {
	if err := c.emitExpr(value); err != nil {
		return err
	}
	member, err := c.emitMemberAddr(ma)
	if err != nil {
		return err
	}
	c.w.insn("pop rbx")
	if c.widthOf(member.TypeName) == 1 {
		c.w.insn("mov byte [rax], bl")
	} else {
		c.w.insn("mov [rax], rbx")
	}
	c.w.insn("push rbx")
	return nil
}

func (c *Codegen) emitAssignDeref(deref *Deref, value Node) error {
	if err := c.emitExpr(value); err != nil {
		return err
	}
	if err := c.emitExpr(deref.Target); err != nil {
		return err
	}
	c.w.insn("pop rax") // address
	c.w.insn("pop rbx") // value
	c.w.insn("mov [rax], rbx")
	c.w.insn("push rbx")
	return nil
}

func (c *Codegen) emitAssignArray(aa *ArrayAccess, value Node) error {
	sym, ok := c.syms.Lookup(aa.Name)
	if !ok {
		return c.errf(aa.Pos(), "undefined variable %q", aa.Name)
	}
	width := c.widthOf(elementTypeOf(sym.TypeName))

	if err := c.emitExpr(value); err != nil {
		return err
	}
	if err := c.emitExpr(aa.Index); err != nil {
		return err
	}
	c.w.insn("pop rbx")
	c.w.insn(fmt.Sprintf("imul rbx, %d", width))
	c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset)))
	c.w.insn("add rax, rbx")
	c.w.insn("pop rbx")
	if width == 1 {
		c.w.insn("mov byte [rax], bl")
	} else {
		c.w.insn("mov [rax], rbx")
	}
	c.w.insn("push rbx")
	return nil
}

// ---- expressions ----

func (c *Codegen) emitExpr(n Node) error {
	switch t := n.(type) {
	case *IntLit:
		c.w.insn(fmt.Sprintf("mov rax, %d", t.Value))
		c.w.insn("push rax")
		return nil

	case *StringLit:
		label := c.labels.Const()
		c.w.rodataString(label, t.Value)
		c.w.insn(fmt.Sprintf("lea rax, [rel %s]", label))
		c.w.insn("push rax")
		return nil

	case *VarRef:
		sym, ok := c.syms.Lookup(t.Name)
		if !ok {
			return c.errf(t.Pos(), "undefined variable %q", t.Name)
		}
		switch {
		case c.isStructType(sym.TypeName):
			c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset)))
		case sym.TypeName == "char":
			c.w.insn(fmt.Sprintf("movzx rax, byte [%s]", c.frameAddr(sym.Offset)))
		default:
			c.w.insn(fmt.Sprintf("mov rax, [%s]", c.frameAddr(sym.Offset)))
		}
		c.w.insn("push rax")
		return nil

	case *BinOp:
		if err := c.emitExpr(t.Left); err != nil {
			return err
		}
		if err := c.emitExpr(t.Right); err != nil {
			return err
		}
		c.w.insn("pop rbx")
		c.w.insn("pop rax")
		switch t.Op {
		case BinAdd:
			c.w.insn("add rax, rbx")
		case BinSub:
			c.w.insn("sub rax, rbx")
		case BinMul:
			c.w.insn("imul rax, rbx")
		case BinDiv:
			c.w.insn("cqo")
			c.w.insn("idiv rbx")
		case BinOr:
			c.w.insn("or rax, rbx")
		case BinAnd:
			c.w.insn("and rax, rbx")
		}
		c.w.insn("push rax")
		return nil

	case *CmpOp:
		if err := c.emitExpr(t.Left); err != nil {
			return err
		}
		if err := c.emitExpr(t.Right); err != nil {
			return err
		}
		c.w.insn("pop rbx")
		c.w.insn("pop rax")
		c.w.insn("cmp rax, rbx")
		var setcc string
		switch t.Op {
		case CmpGT:
			setcc = "setg"
		case CmpLT:
			setcc = "setl"
		case CmpEQ:
			setcc = "sete"
		case CmpNEQ:
			setcc = "setne"
		}
		c.w.insn(setcc + " al")
		c.w.insn("movzx rax, al")
		c.w.insn("push rax")
		return nil

	case *AndExpr:
		falseLabel := c.labels.Control()
		endLabel := c.labels.Control()
		if err := c.emitExpr(t.Left); err != nil {
			return err
		}
		c.w.insn("pop rax")
		c.w.insn("cmp rax, 0")
		c.w.insn("je " + falseLabel)
		if err := c.emitExpr(t.Right); err != nil {
			return err
		}
		c.w.insn("pop rax")
		c.w.insn("cmp rax, 0")
		c.w.insn("je " + falseLabel)
		c.w.insn("mov rax, 1")
		c.w.insn("jmp " + endLabel)
		c.w.label(falseLabel)
		c.w.insn("mov rax, 0")
		c.w.label(endLabel)
		c.w.insn("push rax")
		return nil

	case *OrExpr:
		trueLabel := c.labels.Control()
		endLabel := c.labels.Control()
		if err := c.emitExpr(t.Left); err != nil {
			return err
		}
		c.w.insn("pop rax")
		c.w.insn("cmp rax, 0")
		c.w.insn("jne " + trueLabel)
		if err := c.emitExpr(t.Right); err != nil {
			return err
		}
		c.w.insn("pop rax")
		c.w.insn("cmp rax, 0")
		c.w.insn("jne " + trueLabel)
		c.w.insn("mov rax, 0")
		c.w.insn("jmp " + endLabel)
		c.w.label(trueLabel)
		c.w.insn("mov rax, 1")
		c.w.label(endLabel)
		c.w.insn("push rax")
		return nil

	case *MemberAccess:
		member, err := c.emitMemberAddr(t)
		if err != nil {
			return err
		}
		if c.widthOf(member.TypeName) == 1 {
			c.w.insn("movzx rax, byte [rax]")
		} else {
			c.w.insn("mov rax, [rax]")
		}
		c.w.insn("push rax")
		return nil

	case *AddrOf:
		switch target := t.Target.(type) {
		case *VarRef:
			sym, ok := c.syms.Lookup(target.Name)
			if !ok {
				return c.errf(target.Pos(), "undefined variable %q", target.Name)
			}
			c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset)))
			c.w.insn("push rax")
		case *MemberAccess:
			if _, err := c.emitMemberAddr(target); err != nil {
				return err
			}
			c.w.insn("push rax")
		default:
			if _, err := c.emitLValueAddr(t.Target); err != nil {
				return err
			}
			c.w.insn("push rax")
		}
		return nil

	case *Deref:
		if err := c.emitExpr(t.Target); err != nil {
			return err
		}
		c.w.insn("pop rax")
		c.w.insn("mov rax, [rax]")
		c.w.insn("push rax")
		return nil

	case *PostInc:
		width, err := c.emitLValueAddr(t.Target)
		if err != nil {
			return err
		}
		if width == 1 {
			c.w.insn("movzx rbx, byte [rax]")
		} else {
			c.w.insn("mov rbx, [rax]")
		}
		c.w.insn("push rbx")
		c.w.insn("inc rbx")
		if width == 1 {
			c.w.insn("mov byte [rax], bl")
		} else {
			c.w.insn("mov [rax], rbx")
		}
		return nil

	case *ArrayAccess:
		sym, ok := c.syms.Lookup(t.Name)
		if !ok {
			return c.errf(t.Pos(), "undefined variable %q", t.Name)
		}
		width := c.widthOf(elementTypeOf(sym.TypeName))
		if err := c.emitExpr(t.Index); err != nil {
			return err
		}
		c.w.insn("pop rbx")
		c.w.insn(fmt.Sprintf("imul rbx, %d", width))
		c.w.insn(fmt.Sprintf("lea rax, [%s]", c.frameAddr(sym.Offset)))
		c.w.insn("add rax, rbx")
		if width == 1 {
			c.w.insn("movzx rax, byte [rax]")
		} else {
			c.w.insn("mov rax, [rax]")
		}
		c.w.insn("push rax")
		return nil

	case *FuncCall:
		for _, a := range t.Args {
			if err := c.emitExpr(a); err != nil {
				return err
			}
		}
		n := len(t.Args)
		if n > len(x86.ArgRegs) {
			return c.errf(t.Pos(), "call to %q passes %d arguments, at most %d are supported", t.Name, n, len(x86.ArgRegs))
		}
		for i := n - 1; i >= 0; i-- {
			c.w.insn("pop " + x86.ArgRegs[i])
		}
		c.w.insn("call " + t.Name)
		c.w.insn("push " + x86.ReturnReg) // System V ABI: call results return in rax
		return nil

	case *Syscall:
		for _, a := range t.Args {
			if err := c.emitExpr(a); err != nil {
				return err
			}
		}
		n := len(t.Args)
		if n == 0 {
			return c.errf(t.Pos(), "syscall requires a syscall number")
		}
		if n-1 > len(x86.SyscallRegs) {
			return c.errf(t.Pos(), "syscall passes %d arguments beyond the syscall number, at most %d are supported", n-1, len(x86.SyscallRegs))
		}
		for i := n - 1; i >= 0; i-- {
			if i == 0 {
				c.w.insn("pop " + x86.SyscallNumberReg)
			} else {
				c.w.insn("pop " + x86.SyscallRegs[i-1])
			}
		}
		c.w.insn("syscall")
		c.w.insn("push " + x86.ReturnReg) // syscall return value is also left in rax
		return nil

	case *SizeofExpr:
		size, err := c.structs.SizeOf(t.TypeName)
		if err != nil {
			return c.errf(t.Pos(), "%s", err.Error())
		}
		c.w.insn(fmt.Sprintf("mov rax, %d", size))
		c.w.insn("push rax")
		return nil

	case *Assign:
		switch target := t.Target.(type) {
		case *VarRef:
			return c.emitAssignPlain(target, t.Value)
		case *MemberAccess:
			return c.emitAssignMember(target, t.Value)
		case *Deref:
			return c.emitAssignDeref(target, t.Value)
		case *ArrayAccess:
			return c.emitAssignArray(target, t.Value)
		default:
			return c.errf(t.Pos(), "invalid assignment target")
		}

	default:
		return c.errf(n.Pos(), "unsupported expression %T", n)
	}
}
