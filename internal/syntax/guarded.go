package syntax

// Guarded forms are produced only by the restricted compiler, never by the
// parser. Each one stands for an operation the evaluator may perform solely
// by calling through a capability guard; the plain Attribute, Subscript and
// AugAssign nodes never reach the evaluator.
type (
	// GuardedAttr reads obj.Name.
	GuardedAttr struct {
		Pos
		X    Expr
		Name string
	}

	// GuardedItem reads X[Index].
	GuardedItem struct {
		Pos
		X     Expr
		Index Expr
	}

	// GuardedIter produces an iterator over X. It appears as the iterable of
	// for loops and comprehensions and inside Starred spreads.
	GuardedIter struct {
		Pos
		X Expr
	}

	// GuardedUnpack is a tuple/list assignment target; the assigned value is
	// unpacked into exactly len(Targets) items.
	GuardedUnpack struct {
		Pos
		Targets []Expr
	}

	// GuardedStoreItem is an "X[Index] = v" target.
	GuardedStoreItem struct {
		Pos
		X     Expr
		Index Expr
	}

	// GuardedDelItem is a "del X[Index]" target.
	GuardedDelItem struct {
		Pos
		X     Expr
		Index Expr
	}

	// GuardedInPlace is an augmented assignment.
	GuardedInPlace struct {
		Pos
		Target Expr
		Op     string
		Value  Expr
	}
)

func (*GuardedAttr) exprNode()      {}
func (*GuardedItem) exprNode()      {}
func (*GuardedIter) exprNode()      {}
func (*GuardedUnpack) exprNode()    {}
func (*GuardedStoreItem) exprNode() {}
func (*GuardedDelItem) exprNode()   {}
func (*GuardedInPlace) stmtNode()   {}
