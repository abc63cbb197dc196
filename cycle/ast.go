// Package cycle implements the mini-notation parser and the per-run cycle
// interpreter. A parsed cycle is an immutable tree; all per-run state
// (alternation counters, polymeter phases, choice logs) lives in an
// Evaluator, so one tree can be shared by many pattern instances.
package cycle

import (
	"github.com/cbegin/pattrns-go/note"
	"github.com/cbegin/pattrns-go/rational"
)

type NodeKind int

const (
	KindRest NodeKind = iota + 1
	KindHold
	KindPitch
	KindChord
	KindNumber
	KindName
	KindTarget
	KindSequence    // whitespace-joined elements; also bracketed subdivisions
	KindAlternation // < ... >
	KindPolymeter   // { ... } % n
	KindStack       // sections joined by ','  (also '.' split after desugar)
	KindChoice      // sections joined by '|'
	KindExpression  // single/group plus operators
)

type OpKind int

const (
	OpFast    OpKind = iota + 1 // *k
	OpSlow                      // /k
	OpRepeat                    // !k
	OpWeight                    // @w
	OpDegrade                   // ?p
	OpTarget                    // :attr
	OpEuclid                    // (k,n[,r])
)

// AttrKind identifies a target attribute: single-letter codes in the
// notation plus named attributes assigned with ':'.
type AttrKind int

const (
	AttrInstrument AttrKind = iota + 1 // #3
	AttrVolume                         // v0.5
	AttrPanning                        // p-1.0
	AttrDelay                          // d.25
	AttrNamed                          // :name or :name=value
)

type Attribute struct {
	Kind  AttrKind
	Name  string // AttrNamed only
	Value float64
}

type Op struct {
	Kind   OpKind
	Amount int          // OpFast, OpSlow, OpRepeat count
	Weight rational.Rat // OpWeight
	Prob   float64      // OpDegrade
	Attr   Attribute    // OpTarget
	K, N, Rotate int    // OpEuclid
}

// Node is the tagged AST node. Exactly one payload group is meaningful per
// kind; the interpreter dispatches on Kind.
type Node struct {
	Kind NodeKind

	// Leaf payloads.
	Note  note.Note   // KindPitch
	Chord []note.Note // KindChord
	Num   float64     // KindNumber
	IsInt bool        // KindNumber: integer literal
	Name  string      // KindName
	Attr  Attribute   // KindTarget
	Raw   string      // source text of the leaf

	// Group payloads. Each child of a group node is one section element;
	// KindStack/KindChoice children are whole sections.
	Children []*Node
	Steps    int // KindPolymeter: % parameter (0 = first channel's length)

	// Expression payload.
	Inner *Node
	Ops   []Op

	// Stable identity for seeded random draws, assigned by the parser in
	// source order.
	id int

	// splice marks a sequence produced by range expansion (0..3): its steps
	// join the enclosing sequence as siblings instead of subdividing one
	// slot.
	splice bool
}

// step is one weighted slot in a sequence after repeat/weight expansion.
type step struct {
	node   *Node
	weight rational.Rat
}
