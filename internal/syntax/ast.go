package syntax

// Pos is a 1-based source position. Every node embeds one.
type Pos struct {
	Line int
	Col  int
}

// Position returns the node's position.
func (p Pos) Position() Pos { return p }

// Node is any syntax tree node.
type Node interface {
	Position() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// File is a parsed script.
type File struct {
	Body []Stmt
}

// Scope records the static name classification of a function, lambda or
// comprehension body. The parser leaves it nil; the compiler fills it in.
type Scope struct {
	Locals    map[string]bool
	Globals   map[string]bool
	Nonlocals map[string]bool
	// Frees are the names read from an enclosing function scope, including
	// names only passed through to a nested function.
	Frees map[string]bool
}

// ---- statements ----

type (
	ExprStmt struct {
		Pos
		X Expr
	}

	// Assign is "t1 = t2 = value".
	Assign struct {
		Pos
		Targets []Expr
		Value   Expr
	}

	// AnnAssign is "target: annotation [= value]". The annotation is parsed
	// and ignored.
	AnnAssign struct {
		Pos
		Target     Expr
		Annotation Expr
		Value      Expr
	}

	// AugAssign is "target op= value"; Op keeps the trailing "=".
	AugAssign struct {
		Pos
		Target Expr
		Op     string
		Value  Expr
	}

	// If also represents elif branches: an elif is an If with Elif set,
	// stored as the sole statement of its parent's Else.
	If struct {
		Pos
		Test Expr
		Body []Stmt
		Else []Stmt
		Elif bool
	}

	While struct {
		Pos
		Test Expr
		Body []Stmt
		Else []Stmt
	}

	For struct {
		Pos
		Target Expr
		Iter   Expr
		Body   []Stmt
		Else   []Stmt
	}

	Break    struct{ Pos }
	Continue struct{ Pos }
	Pass     struct{ Pos }

	FuncDef struct {
		Pos
		Name   string
		Params []*Param
		Vararg string
		Body   []Stmt
		Scope  *Scope
	}

	Return struct {
		Pos
		Value Expr
	}

	Import struct {
		Pos
		Names []*Alias
	}

	ImportFrom struct {
		Pos
		Module string
		Names  []*Alias
		Star   bool
	}

	Raise struct {
		Pos
		Exc   Expr
		Cause Expr
	}

	Try struct {
		Pos
		Body     []Stmt
		Handlers []*Handler
		Else     []Stmt
		Finally  []Stmt
	}

	Assert struct {
		Pos
		Test Expr
		Msg  Expr
	}

	Delete struct {
		Pos
		Targets []Expr
	}

	Global struct {
		Pos
		Names []string
	}

	Nonlocal struct {
		Pos
		Names []string
	}

	// ClassDef and With are parsed so the compiler can reject them with a
	// precise message.
	ClassDef struct {
		Pos
		Name  string
		Bases []Expr
		Body  []Stmt
	}

	With struct {
		Pos
		Items []Expr
		Body  []Stmt
	}
)

// Param is a function or lambda parameter.
type Param struct {
	Pos
	Name    string
	Default Expr
	KwOnly  bool
}

// Alias is one "name [as asname]" clause of an import.
type Alias struct {
	Pos
	Name   string
	AsName string
}

// Bound returns the name the import binds.
func (a *Alias) Bound() string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

// Handler is one except clause. Type is nil for a bare except.
type Handler struct {
	Pos
	Type Expr
	Name string
	Body []Stmt
}

// ---- expressions ----

type (
	Name struct {
		Pos
		Id string
	}

	// Constant holds nil (None), bool, int64, float64 or string.
	Constant struct {
		Pos
		Value any
	}

	FString struct {
		Pos
		Parts []FPart
	}

	ListExpr struct {
		Pos
		Elts []Expr
	}

	TupleExpr struct {
		Pos
		Elts []Expr
	}

	SetExpr struct {
		Pos
		Elts []Expr
	}

	DictExpr struct {
		Pos
		Keys   []Expr
		Values []Expr
	}

	// Starred is "*x" in a call argument list or display.
	Starred struct {
		Pos
		X Expr
	}

	ListComp struct {
		Pos
		Elt   Expr
		Gens  []*Comprehension
		Scope *Scope
	}

	SetComp struct {
		Pos
		Elt   Expr
		Gens  []*Comprehension
		Scope *Scope
	}

	// GeneratorExp is materialized eagerly by the evaluator.
	GeneratorExp struct {
		Pos
		Elt   Expr
		Gens  []*Comprehension
		Scope *Scope
	}

	DictComp struct {
		Pos
		Key   Expr
		Value Expr
		Gens  []*Comprehension
		Scope *Scope
	}

	Attribute struct {
		Pos
		X    Expr
		Name string
	}

	Subscript struct {
		Pos
		X     Expr
		Index Expr
	}

	Slice struct {
		Pos
		Lo   Expr
		Hi   Expr
		Step Expr
	}

	Call struct {
		Pos
		Func     Expr
		Args     []Expr
		Keywords []*Keyword
	}

	// UnaryOp Op is one of "-", "+", "~", "not".
	UnaryOp struct {
		Pos
		Op string
		X  Expr
	}

	BinOp struct {
		Pos
		Op string
		X  Expr
		Y  Expr
	}

	// BoolOp Op is "and" or "or".
	BoolOp struct {
		Pos
		Op     string
		Values []Expr
	}

	// Compare is a chained comparison "x op1 y op2 z".
	Compare struct {
		Pos
		X           Expr
		Ops         []string
		Comparators []Expr
	}

	IfExp struct {
		Pos
		Test Expr
		Body Expr
		Else Expr
	}

	Lambda struct {
		Pos
		Params []*Param
		Vararg string
		Body   Expr
		Scope  *Scope
	}

	Yield struct {
		Pos
		Value Expr
	}
)

// FPart is one piece of an f-string: literal text, or a replacement field
// with optional conversion ('r', 's', 'a') and nested format spec.
type FPart struct {
	Lit   string
	Value Expr
	Conv  byte
	Spec  *FString
}

// Comprehension is one "for target in iter [if cond]*" clause.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

// Keyword is a "name=value" call argument.
type Keyword struct {
	Pos
	Name  string
	Value Expr
}

func (*ExprStmt) stmtNode()   {}
func (*Assign) stmtNode()     {}
func (*AnnAssign) stmtNode()  {}
func (*AugAssign) stmtNode()  {}
func (*If) stmtNode()         {}
func (*While) stmtNode()      {}
func (*For) stmtNode()        {}
func (*Break) stmtNode()      {}
func (*Continue) stmtNode()   {}
func (*Pass) stmtNode()       {}
func (*FuncDef) stmtNode()    {}
func (*Return) stmtNode()     {}
func (*Import) stmtNode()     {}
func (*ImportFrom) stmtNode() {}
func (*Raise) stmtNode()      {}
func (*Try) stmtNode()        {}
func (*Assert) stmtNode()     {}
func (*Delete) stmtNode()     {}
func (*Global) stmtNode()     {}
func (*Nonlocal) stmtNode()   {}
func (*ClassDef) stmtNode()   {}
func (*With) stmtNode()       {}

func (*Name) exprNode()         {}
func (*Constant) exprNode()     {}
func (*FString) exprNode()      {}
func (*ListExpr) exprNode()     {}
func (*TupleExpr) exprNode()    {}
func (*SetExpr) exprNode()      {}
func (*DictExpr) exprNode()     {}
func (*Starred) exprNode()      {}
func (*ListComp) exprNode()     {}
func (*SetComp) exprNode()      {}
func (*GeneratorExp) exprNode() {}
func (*DictComp) exprNode()     {}
func (*Attribute) exprNode()    {}
func (*Subscript) exprNode()    {}
func (*Slice) exprNode()        {}
func (*Call) exprNode()         {}
func (*UnaryOp) exprNode()      {}
func (*BinOp) exprNode()        {}
func (*BoolOp) exprNode()       {}
func (*Compare) exprNode()      {}
func (*IfExp) exprNode()        {}
func (*Lambda) exprNode()       {}
func (*Yield) exprNode()        {}
