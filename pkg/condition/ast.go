package condition

// Expr is a node of a parsed condition.
type Expr interface {
	expr()
}

// Logical joins two expressions with AND or OR.
type Logical struct {
	Op    string // "AND" | "OR"
	Left  Expr
	Right Expr
}

// Not negates an expression.
type Not struct {
	Inner Expr
}

// Compare applies a binary operator to two operands.
type Compare struct {
	Left  Operand
	Op    Operator
	Right Operand
}

// Truthy tests a single operand.
type Truthy struct {
	Operand Operand
}

func (*Logical) expr() {}
func (*Not) expr()     {}
func (*Compare) expr() {}
func (*Truthy) expr()  {}

// Operand is a literal or a variable path.
type Operand interface {
	operand()
}

// Literal is a constant parsed from the source. Numbers are float64.
type Literal struct {
	Value any
}

// Var is a dotted path into the game state.
type Var struct {
	Path []string
}

func (*Literal) operand() {}
func (*Var) operand()     {}
