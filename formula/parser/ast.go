package parser

import "github.com/teranos/kalc/sheet"

// Node is one AST node. Pos returns the byte offset of the node's first
// token within the formula text.
type Node interface {
	Pos() int
}

// NumberLit is a numeric literal. Terminal: never re-interpreted.
type NumberLit struct {
	NodePos int
	Value   float64
}

// StringLit is a double-quoted string literal, unescaped.
type StringLit struct {
	NodePos int
	Value   string
}

// BoolLit is TRUE or FALSE (case-insensitive).
type BoolLit struct {
	NodePos int
	Value   bool
}

// CellRef is an A1-notation cell reference.
type CellRef struct {
	NodePos int
	Addr    sheet.Address
	Name    string // original spelling, e.g. "aa27"
}

// RangeRef is <ref>:<ref>. Syntactically valid anywhere; the evaluator
// rejects it outside a direct function argument position.
type RangeRef struct {
	NodePos  int
	From, To *CellRef
}

// Unary is prefix + or -.
type Unary struct {
	NodePos int
	Op      string
	X       Node
}

// Binary is an infix operator application.
type Binary struct {
	NodePos int
	Op      string
	Left    Node
	Right   Node
}

// Call is a function invocation. Name is kept as written; lookup is
// case-insensitive.
type Call struct {
	NodePos int
	Name    string
	Args    []Node
}

// Member is field access on a dereferenced base: base.Field or
// base["Field"]. Bracket form admits spaces in the field name.
type Member struct {
	NodePos int
	Base    Node
	Field   string
}

func (n *NumberLit) Pos() int { return n.NodePos }
func (n *StringLit) Pos() int { return n.NodePos }
func (n *BoolLit) Pos() int   { return n.NodePos }
func (n *CellRef) Pos() int   { return n.NodePos }
func (n *RangeRef) Pos() int  { return n.NodePos }
func (n *Unary) Pos() int     { return n.NodePos }
func (n *Binary) Pos() int    { return n.NodePos }
func (n *Call) Pos() int      { return n.NodePos }
func (n *Member) Pos() int    { return n.NodePos }

// Walk calls fn for node and every child, depth-first. fn returning false
// prunes the subtree.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Call:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *Member:
		Walk(n.Base, fn)
	case *RangeRef:
		Walk(n.From, fn)
		Walk(n.To, fn)
	}
}
