package helium

// Parser is a recursive-descent parser over a Lexer's token stream. It
// keeps one token of lookahead in tok (mirroring the original source's
// global `Token current_token`), and owns the struct registry it
// populates as struct definitions are parsed.
//
// The precedence chain (parseAssignExpr down to parsePrimary) is
// grounded on the teacher's grammar_parser.go, which is itself one
// method per precedence level, each trying the next-higher level first
// before looking for its own operator.
type Parser struct {
	lex     *Lexer
	tok     Token
	structs *StructRegistry
}

// NewParser creates a parser over lex, priming the one-token lookahead.
func NewParser(lex *Lexer) (*Parser, error) {
	p := &Parser{lex: lex, structs: NewStructRegistry()}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Structs returns the struct registry populated while parsing.
func (p *Parser) Structs() *StructRegistry { return p.structs }

func (p *Parser) advance() error {
	t, err := p.lex.Advance()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) errf(format string, args ...any) error {
	return NewDiagnostic(p.tok.Pos, p.lex.buf, format, args...)
}

// expect consumes the current token if it has kind k, or raises a
// diagnostic naming what was expected and what was found.
func (p *Parser) expect(k TokenKind) (Token, error) {
	if p.tok.Kind != k {
		return Token{}, p.errf("expected %s but found %s", k, p.tok.Kind)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Parse parses the whole token stream into a Program. Top level
// alternates between function definitions and struct definitions;
// per spec.md §4.3, any other token at top level is skipped.
func (p *Parser) Parse() (*Program, error) {
	prog := &Program{}
	for p.tok.Kind != TokEOF {
		switch p.tok.Kind {
		case TokFn:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fn)
		case TokStruct:
			if err := p.parseStruct(); err != nil {
				return nil, err
			}
		default:
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return prog, nil
}

// ---- struct / type names ----

func (p *Parser) parseStruct() error {
	if _, err := p.expect(TokStruct); err != nil {
		return err
	}
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return err
	}

	def := &StructDef{Name: nameTok.Text}
	offset := 0
	for p.tok.Kind != TokRBrace {
		memberTok, err := p.expect(TokIdent)
		if err != nil {
			return err
		}
		if _, err := p.expect(TokColon); err != nil {
			return err
		}
		typeName, err := p.parseTypeName()
		if err != nil {
			return err
		}
		size, err := p.structs.SizeOf(typeName)
		if err != nil {
			return p.errf("%s", err.Error())
		}
		def.Members = append(def.Members, StructMember{Name: memberTok.Text, Offset: offset, TypeName: typeName})
		offset += size

		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	def.Size = offset

	if _, err := p.expect(TokRBrace); err != nil {
		return err
	}
	if p.tok.Kind == TokSemi {
		if err := p.advance(); err != nil {
			return err
		}
	}
	if err := p.structs.Define(def); err != nil {
		return p.errf("%s", err.Error())
	}
	return nil
}

// parseTypeName parses "int", "char", "ptr", or a previously-registered
// struct name.
func (p *Parser) parseTypeName() (string, error) {
	switch p.tok.Kind {
	case TokIntType, TokCharType, TokPtrType:
		name := p.tok.Kind.String()
		if err := p.advance(); err != nil {
			return "", err
		}
		return name, nil
	case TokIdent:
		name := p.tok.Text
		if _, ok := p.structs.Lookup(name); !ok {
			return "", p.errf("unknown type %q", name)
		}
		if err := p.advance(); err != nil {
			return "", err
		}
		return name, nil
	default:
		return "", p.errf("expected a type name but found %s", p.tok.Kind)
	}
}

// ---- functions ----

func (p *Parser) parseFunction() (*Function, error) {
	pos := p.tok.Pos
	if _, err := p.expect(TokFn); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}

	var params []*VarDecl
	for p.tok.Kind != TokRParen {
		paramPos := p.tok.Pos
		pnameTok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		typeName, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		params = append(params, &VarDecl{node: node{paramPos}, Name: pnameTok.Text, TypeName: typeName})

		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}

	returnType := ""
	if p.tok.Kind == TokArrow {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rt, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		returnType = rt
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &Function{node: node{pos}, Name: nameTok.Text, Params: params, ReturnType: returnType, Body: body}, nil
}

func (p *Parser) parseBlock() (*Block, error) {
	pos := p.tok.Pos
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	b := &Block{node: node{pos}}
	for p.tok.Kind != TokRBrace {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return b, nil
}

// ---- statements ----

func (p *Parser) parseStatement() (Node, error) {
	pos := p.tok.Pos

	switch p.tok.Kind {
	case TokIntType, TokCharType, TokPtrType:
		typeName, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		return p.parseDeclStatement(typeName, pos)

	case TokIdent:
		if _, ok := p.structs.Lookup(p.tok.Text); ok {
			next, err := p.lex.Peek()
			if err != nil {
				return nil, err
			}
			if next.Kind == TokIdent {
				typeName := p.tok.Text
				if err := p.advance(); err != nil {
					return nil, err
				}
				return p.parseDeclStatement(typeName, pos)
			}
		}
		return p.parseExprStatement()

	case TokReturn:
		if err := p.advance(); err != nil {
			return nil, err
		}
		var val Node
		if p.tok.Kind != TokSemi {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			val = v
		}
		if _, err := p.expect(TokSemi); err != nil {
			return nil, err
		}
		return &ReturnStmt{node: node{pos}, Value: val}, nil

	case TokIf:
		return p.parseIf()

	case TokWhile:
		return p.parseWhile()

	case TokFor:
		return p.parseFor()

	default:
		return p.parseExprStatement()
	}
}

// parseDeclStatement parses the tail of a declaration once typeName has
// already been consumed: "name;", "name = expr;", or "name[N];".
func (p *Parser) parseDeclStatement(typeName string, pos Location) (Node, error) {
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case TokLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		lenTok, err := p.expect(TokInt)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemi); err != nil {
			return nil, err
		}
		return &ArrayDecl{node: node{pos}, Name: nameTok.Text, ElemType: typeName, Length: lenTok.IntVal}, nil

	case TokAssign:
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemi); err != nil {
			return nil, err
		}
		return &VarDecl{node: node{pos}, Name: nameTok.Text, TypeName: typeName, Init: val}, nil

	case TokSemi:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &VarDecl{node: node{pos}, Name: nameTok.Text, TypeName: typeName}, nil

	default:
		return nil, p.errf("expected ';', '=', or '[' after declaration of %q", nameTok.Text)
	}
}

func (p *Parser) parseExprStatement() (Node, error) {
	pos := p.tok.Pos
	e, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	return &ExprStmt{node: node{pos}, Expr: e}, nil
}

func (p *Parser) parseIf() (Node, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseBlk *Block
	if p.tok.Kind == TokElse {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokIf {
			innerPos := p.tok.Pos
			inner, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			elseBlk = &Block{node: node{innerPos}, Stmts: []Node{inner}}
		} else {
			eb, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			elseBlk = eb
		}
	}
	return &IfStmt{node: node{pos}, Cond: cond, Then: then, Else: elseBlk}, nil
}

func (p *Parser) parseWhile() (Node, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{node: node{pos}, Cond: cond, Body: body}, nil
}

// parseFor dispatches between the two surface forms named by spec.md
// §4.3, both desugared into the same ForStmt node.
func (p *Parser) parseFor() (Node, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume 'for'
		return nil, err
	}
	if p.tok.Kind == TokIdent {
		next, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == TokIn {
			return p.parseForRange(pos)
		}
	}
	return p.parseForCStyle(pos)
}

func (p *Parser) parseForRange(pos Location) (Node, error) {
	identTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIn); err != nil {
		return nil, err
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDotDot); err != nil {
		return nil, err
	}
	end, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	init := &VarDecl{node: node{pos}, Name: identTok.Text, TypeName: "int", Init: start}
	cond := &CmpOp{node: node{pos}, Op: CmpLT, Left: &VarRef{node: node{pos}, Name: identTok.Text}, Right: end}
	incr := &PostInc{node: node{pos}, Target: &VarRef{node: node{pos}, Name: identTok.Text}}
	return &ForStmt{node: node{pos}, Init: init, Cond: cond, Increment: incr, Body: body}, nil
}

func (p *Parser) parseForCStyle(pos Location) (Node, error) {
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	initStmt, err := p.parseStatement() // consumes its own ';'
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	incr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{node: node{pos}, Init: initStmt, Cond: cond, Increment: incr, Body: body}, nil
}

// ---- expressions, lowest to highest precedence ----

func (p *Parser) parseExpr() (Node, error) { return p.parseAssignExpr() }

func isLValue(n Node) bool {
	switch n.(type) {
	case *VarRef, *ArrayAccess, *Deref, *MemberAccess:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAssignExpr() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TokAssign {
		return left, nil
	}
	if !isLValue(left) {
		return nil, p.errf("invalid assignment target")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseAssignExpr() // right-associative
	if err != nil {
		return nil, err
	}
	return &Assign{node: node{pos}, Target: left, Value: right}, nil
}

func (p *Parser) parseOr() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokOrOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{node: node{pos}, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokAndAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{node: node{pos}, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseBitwise()
	if err != nil {
		return nil, err
	}
	for {
		var op CmpOpKind
		switch p.tok.Kind {
		case TokEq:
			op = CmpEQ
		case TokNeq:
			op = CmpNEQ
		case TokLt:
			op = CmpLT
		case TokGt:
			op = CmpGT
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBitwise()
		if err != nil {
			return nil, err
		}
		left = &CmpOp{node: node{pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseBitwise() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOpKind
		switch p.tok.Kind {
		case TokAmp:
			op = BinAnd
		case TokPipe:
			op = BinOr
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinOp{node: node{pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOpKind
		switch p.tok.Kind {
		case TokPlus:
			op = BinAdd
		case TokMinus:
			op = BinSub
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinOp{node: node{pos}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() (Node, error) {
	pos := p.tok.Pos
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOpKind
		switch p.tok.Kind {
		case TokStar:
			op = BinMul
		case TokSlash:
			op = BinDiv
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinOp{node: node{pos}, Op: op, Left: left, Right: right}
	}
}

// parseUnary desugars unary minus into "0 - x" so codegen needs no
// separate unary-negate emission rule, and so constant folding handles
// a literal negative the same way it handles any other folded BinOp.
func (p *Parser) parseUnary() (Node, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case TokAmp:
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &AddrOf{node: node{pos}, Target: target}, nil

	case TokStar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Deref{node: node{pos}, Target: target}, nil

	case TokMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinOp{node: node{pos}, Op: BinSub, Left: &IntLit{node: node{pos}, Value: 0}, Right: target}, nil

	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (Node, error) {
	pos := p.tok.Pos
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case TokLParen:
			ref, ok := expr.(*VarRef)
			if !ok {
				return nil, p.errf("call target must be a function name")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			expr = &FuncCall{node: node{pos}, Name: ref.Name, Args: args}

		case TokLBracket:
			ref, ok := expr.(*VarRef)
			if !ok {
				return nil, p.errf("index target must be an array name")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			expr = &ArrayAccess{node: node{pos}, Name: ref.Name, Index: idx}

		case TokDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			memberTok, err := p.expect(TokIdent)
			if err != nil {
				return nil, err
			}
			expr = &MemberAccess{node: node{pos}, Base: expr, Member: memberTok.Text, Arrow: false}

		case TokArrow:
			if err := p.advance(); err != nil {
				return nil, err
			}
			memberTok, err := p.expect(TokIdent)
			if err != nil {
				return nil, err
			}
			expr = &MemberAccess{node: node{pos}, Base: expr, Member: memberTok.Text, Arrow: true}

		case TokInc:
			if !isLValue(expr) {
				return nil, p.errf("invalid post-increment target")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &PostInc{node: node{pos}, Target: expr}

		default:
			return expr, nil
		}
	}
}

// parseArgList parses a comma-separated argument list up to (but not
// consuming) the ')', then consumes it. Shared by call expressions and
// syscall(...); sizeof takes a bare type name instead.
func (p *Parser) parseArgList() ([]Node, error) {
	var args []Node
	for p.tok.Kind != TokRParen {
		a, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.tok.Kind == TokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case TokInt:
		v := p.tok.IntVal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &IntLit{node: node{pos}, Value: v}, nil

	case TokString:
		s := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StringLit{node: node{pos}, Value: s}, nil

	case TokIdent:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &VarRef{node: node{pos}, Name: name}, nil

	case TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return e, nil

	case TokSyscall:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokLParen); err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return &Syscall{node: node{pos}, Args: args}, nil

	case TokSizeof:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokLParen); err != nil {
			return nil, err
		}
		typeName, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return &SizeofExpr{node: node{pos}, TypeName: typeName}, nil

	default:
		return nil, p.errf("unexpected token %s", p.tok.Kind)
	}
}
