package helium

import "fmt"

// FoldProgram runs constant folding over every function body in prog.
// Folding is a bottom-up (post-order) rewrite: a BinOp node whose both
// operands have already folded down to integer literals is replaced, in
// place, by a single integer literal holding the computed value, for the
// operators + - * / | &. Division by zero is left as a runtime
// operation (not folded), matching spec.md §4.4.
//
// This is grounded on the teacher's post-order Accept/visitor walk
// (grammar_ast_visitor.go's WalkSequenceNode etc.), generalized from
// "visit and translate" to "visit and possibly replace", the same shape
// as grammar_compiler.go's VisitOneOrMoreNode rewriting one node into
// another before continuing.
func FoldProgram(prog *Program) {
	for _, fn := range prog.Functions {
		fn.Body = foldBlock(fn.Body)
	}
}

func foldBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	for i, s := range b.Stmts {
		b.Stmts[i] = foldNode(s)
	}
	return b
}

// foldNode folds every expression and statement kind explicitly; there
// is no reflection-based generic traversal, matching the teacher's
// preference for an explicit case per node kind over generic recursion.
func foldNode(n Node) Node {
	switch t := n.(type) {
	case nil:
		return nil

	case *IntLit, *StringLit, *VarRef, *SizeofExpr:
		return n

	case *BinOp:
		t.Left = foldNode(t.Left)
		t.Right = foldNode(t.Right)
		if li, ok := t.Left.(*IntLit); ok {
			if ri, ok := t.Right.(*IntLit); ok {
				if v, ok := foldBinOp(t.Op, li.Value, ri.Value); ok {
					return &IntLit{node: node{t.pos}, Value: v}
				}
			}
		}
		return t

	case *CmpOp:
		t.Left = foldNode(t.Left)
		t.Right = foldNode(t.Right)
		return t

	case *AndExpr:
		t.Left = foldNode(t.Left)
		t.Right = foldNode(t.Right)
		return t

	case *OrExpr:
		t.Left = foldNode(t.Left)
		t.Right = foldNode(t.Right)
		return t

	case *MemberAccess:
		t.Base = foldNode(t.Base)
		return t

	case *AddrOf:
		t.Target = foldNode(t.Target)
		return t

	case *Deref:
		t.Target = foldNode(t.Target)
		return t

	case *PostInc:
		t.Target = foldNode(t.Target)
		return t

	case *ArrayAccess:
		t.Index = foldNode(t.Index)
		return t

	case *FuncCall:
		for i, a := range t.Args {
			t.Args[i] = foldNode(a)
		}
		return t

	case *Syscall:
		for i, a := range t.Args {
			t.Args[i] = foldNode(a)
		}
		return t

	case *Assign:
		t.Target = foldNode(t.Target)
		t.Value = foldNode(t.Value)
		return t

	case *VarDecl:
		if t.Init != nil {
			t.Init = foldNode(t.Init)
		}
		return t

	case *ArrayDecl:
		return t

	case *IfStmt:
		t.Cond = foldNode(t.Cond)
		t.Then = foldBlock(t.Then)
		t.Else = foldBlock(t.Else)
		return t

	case *WhileStmt:
		t.Cond = foldNode(t.Cond)
		t.Body = foldBlock(t.Body)
		return t

	case *ForStmt:
		t.Init = foldNode(t.Init)
		t.Cond = foldNode(t.Cond)
		t.Increment = foldNode(t.Increment)
		t.Body = foldBlock(t.Body)
		return t

	case *ReturnStmt:
		if t.Value != nil {
			t.Value = foldNode(t.Value)
		}
		return t

	case *ExprStmt:
		t.Expr = foldNode(t.Expr)
		return t

	case *Block:
		return foldBlock(t)

	default:
		panic(fmt.Sprintf("foldNode: unhandled node type %T", n))
	}
}

func foldBinOp(op BinOpKind, l, r int64) (int64, bool) {
	switch op {
	case BinAdd:
		return l + r, true
	case BinSub:
		return l - r, true
	case BinMul:
		return l * r, true
	case BinDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case BinOr:
		return l | r, true
	case BinAnd:
		return l & r, true
	}
	return 0, false
}

// ReachabilityStats reports what the reachability pass found, the way
// the other_examples dead-code eliminator
// (internal/dce/dce.go: Eliminate -> Stats{TotalFunctions,
// RemovedFunctions}) reports what it stripped, so a caller can observe
// dropped functions instead of it silently changing output.
type ReachabilityStats struct {
	TotalFunctions   int
	ReachableNames   []string
	UnreachableNames []string
}

// MarkReachable marks every function transitively reachable from "main"
// by setting its Reachable flag, starting a worklist from "main" and
// following FuncCall names found in each reached function's body. Only
// marked functions are later emitted by codegen.
//
// This is grounded on the other_examples worklist-based call-graph
// marker (internal/dce/dce.go's buildRootSet + markReachable), adapted
// from a WASM module's export/call-index graph to Helium's name-keyed
// top-level function list.  Per spec.md §9 ("Call graph for DCE"), the
// top-level function list is iterated directly (a plain Go slice); there
// is no linked "next" chain to accidentally recurse through.
func MarkReachable(prog *Program) ReachabilityStats {
	byName := map[string]*Function{}
	for _, fn := range prog.Functions {
		byName[fn.Name] = fn
	}

	reachable := map[string]bool{}
	var worklist []string
	if _, ok := byName["main"]; ok {
		reachable["main"] = true
		worklist = append(worklist, "main")
	}

	for len(worklist) > 0 {
		name := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		fn := byName[name]

		for _, callee := range calledFunctionNames(fn.Body) {
			if reachable[callee] {
				continue
			}
			if _, ok := byName[callee]; !ok {
				continue
			}
			reachable[callee] = true
			worklist = append(worklist, callee)
		}
	}

	stats := ReachabilityStats{TotalFunctions: len(prog.Functions)}
	for _, fn := range prog.Functions {
		fn.Reachable = reachable[fn.Name]
		if fn.Reachable {
			stats.ReachableNames = append(stats.ReachableNames, fn.Name)
		} else {
			stats.UnreachableNames = append(stats.UnreachableNames, fn.Name)
		}
	}
	return stats
}

func calledFunctionNames(n Node) []string {
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case nil:
			return
		case *FuncCall:
			names = append(names, t.Name)
			for _, a := range t.Args {
				walk(a)
			}
		case *Syscall:
			for _, a := range t.Args {
				walk(a)
			}
		case *BinOp:
			walk(t.Left)
			walk(t.Right)
		case *CmpOp:
			walk(t.Left)
			walk(t.Right)
		case *AndExpr:
			walk(t.Left)
			walk(t.Right)
		case *OrExpr:
			walk(t.Left)
			walk(t.Right)
		case *MemberAccess:
			walk(t.Base)
		case *AddrOf:
			walk(t.Target)
		case *Deref:
			walk(t.Target)
		case *PostInc:
			walk(t.Target)
		case *ArrayAccess:
			walk(t.Index)
		case *Assign:
			walk(t.Target)
			walk(t.Value)
		case *VarDecl:
			walk(t.Init)
		case *IfStmt:
			walk(t.Cond)
			walk(t.Then)
			walk(t.Else)
		case *WhileStmt:
			walk(t.Cond)
			walk(t.Body)
		case *ForStmt:
			walk(t.Init)
			walk(t.Cond)
			walk(t.Increment)
			walk(t.Body)
		case *ReturnStmt:
			walk(t.Value)
		case *ExprStmt:
			walk(t.Expr)
		case *Block:
			if t == nil {
				return
			}
			for _, s := range t.Stmts {
				walk(s)
			}
		}
	}
	walk(n)
	return names
}
