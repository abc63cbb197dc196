package cycle

import (
	"errors"
	"strings"
	"testing"

	"github.com/cbegin/pattrns-go/rational"
)

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return root
}

func TestParseSequence(t *testing.T) {
	root := mustParse(t, "c4 d4 e4 f4")
	if root.Kind != KindSequence {
		t.Fatalf("expected sequence, got kind %d", root.Kind)
	}
	if len(root.Children) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(root.Children))
	}
	for i, want := range []int{60, 62, 64, 65} {
		child := root.Children[i]
		if child.Kind != KindPitch || int(child.Note) != want {
			t.Fatalf("step %d: kind %d note %d, want pitch %d", i, child.Kind, child.Note, want)
		}
	}
}

func TestParseRestAndHold(t *testing.T) {
	root := mustParse(t, "c4 ~ - _")
	kinds := []NodeKind{KindPitch, KindRest, KindRest, KindHold}
	for i, want := range kinds {
		if root.Children[i].Kind != want {
			t.Fatalf("step %d: kind %d, want %d", i, root.Children[i].Kind, want)
		}
	}
}

func TestParseBracketStack(t *testing.T) {
	root := mustParse(t, "[c4, e4, g4]")
	stack := root.Children[0]
	if stack.Kind != KindStack {
		t.Fatalf("expected stack, got kind %d", stack.Kind)
	}
	if len(stack.Children) != 3 {
		t.Fatalf("expected 3 stacked sections, got %d", len(stack.Children))
	}
}

func TestTopLevelStackAndChoiceWithoutBrackets(t *testing.T) {
	root := mustParse(t, "c4, e4")
	if root.Kind != KindStack {
		t.Fatalf("top-level ',' should stack, got kind %d", root.Kind)
	}
	root = mustParse(t, "c4 | e4 | g4")
	if root.Kind != KindChoice {
		t.Fatalf("top-level '|' should parse as choice, got kind %d", root.Kind)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(root.Children))
	}
}

func TestChannelSplitDesugarsToStack(t *testing.T) {
	root := mustParse(t, "c4 d4 . e4 f4")
	if root.Kind != KindStack {
		t.Fatalf("'.' should desugar to a stack, got kind %d", root.Kind)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 lanes, got %d", len(root.Children))
	}
	for _, lane := range root.Children {
		if lane.Kind != KindSequence || len(lane.Children) != 2 {
			t.Fatalf("each lane should keep its full sequence")
		}
	}
}

func TestParseAlternation(t *testing.T) {
	root := mustParse(t, "<c4 e4 g4>")
	alt := root.Children[0]
	if alt.Kind != KindAlternation || len(alt.Children) != 3 {
		t.Fatalf("expected 3-way alternation, got kind %d len %d", alt.Kind, len(alt.Children))
	}
}

func TestParsePolymeter(t *testing.T) {
	root := mustParse(t, "{c4 e4 g4}%4")
	poly := root.Children[0]
	if poly.Kind != KindPolymeter {
		t.Fatalf("expected polymeter, got kind %d", poly.Kind)
	}
	if poly.Steps != 4 {
		t.Fatalf("expected %%4, got %d", poly.Steps)
	}
	root = mustParse(t, "{c4 e4, g4 a4 b4}")
	poly = root.Children[0]
	if len(poly.Children) != 2 {
		t.Fatalf("expected 2 polymeter channels, got %d", len(poly.Children))
	}
	if poly.Steps != 0 {
		t.Fatalf("steps should default to 0 (first channel length), got %d", poly.Steps)
	}
}

func TestParseOperators(t *testing.T) {
	root := mustParse(t, "c4*2 d4/3 e4!2 f4@3 g4?0.25")
	wantOps := []OpKind{OpFast, OpSlow, OpRepeat, OpWeight, OpDegrade}
	for i, want := range wantOps {
		child := root.Children[i]
		if child.Kind != KindExpression || len(child.Ops) != 1 || child.Ops[0].Kind != want {
			t.Fatalf("step %d: expected single op kind %d", i, want)
		}
	}
	if root.Children[4].Ops[0].Prob != 0.25 {
		t.Fatalf("degrade probability = %g, want 0.25", root.Children[4].Ops[0].Prob)
	}
	if root.Children[3].Ops[0].Weight.Cmp(rational.FromInt(3)) != 0 {
		t.Fatalf("weight = %s, want 3", root.Children[3].Ops[0].Weight)
	}
}

func TestParseDegradeDefaultProbability(t *testing.T) {
	root := mustParse(t, "c4?")
	op := root.Children[0].Ops[0]
	if op.Kind != OpDegrade || op.Prob != 0.5 {
		t.Fatalf("bare '?' should degrade at 0.5, got %+v", op)
	}
}

func TestParseEuclid(t *testing.T) {
	root := mustParse(t, "bd(3,8)")
	op := root.Children[0].Ops[0]
	if op.Kind != OpEuclid || op.K != 3 || op.N != 8 || op.Rotate != 0 {
		t.Fatalf("unexpected euclid op %+v", op)
	}
	root = mustParse(t, "bd(3,8,2)")
	op = root.Children[0].Ops[0]
	if op.Rotate != 2 {
		t.Fatalf("rotation = %d, want 2", op.Rotate)
	}
}

func TestEuclidRejectsExpressions(t *testing.T) {
	for _, src := range []string{"bd([1 2],8)", "bd(a,8)", "bd(3,<4 8>)"} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) should fail: euclid args must be literal numbers", src)
		}
	}
}

func TestParseTargets(t *testing.T) {
	root := mustParse(t, "c4:v0.5:p-0.5:d.25:#3")
	expr := root.Children[0]
	if expr.Kind != KindExpression || len(expr.Ops) != 4 {
		t.Fatalf("expected 4 target ops, got %+v", expr)
	}
	wantKinds := []AttrKind{AttrVolume, AttrPanning, AttrDelay, AttrInstrument}
	wantValues := []float64{0.5, -0.5, 0.25, 3}
	for i, op := range expr.Ops {
		if op.Kind != OpTarget || op.Attr.Kind != wantKinds[i] || op.Attr.Value != wantValues[i] {
			t.Fatalf("op %d: %+v, want kind %d value %g", i, op, wantKinds[i], wantValues[i])
		}
	}
}

func TestParseStandaloneTarget(t *testing.T) {
	root := mustParse(t, "v0.5 p-1.0 #3")
	wantKinds := []AttrKind{AttrVolume, AttrPanning, AttrInstrument}
	for i, want := range wantKinds {
		child := root.Children[i]
		if child.Kind != KindTarget || child.Attr.Kind != want {
			t.Fatalf("step %d: kind %d attr %d, want target attr %d", i, child.Kind, child.Attr.Kind, want)
		}
	}
}

func TestTargetRangeValidation(t *testing.T) {
	// Out-of-range volume is rejected at parse time; "v1.5" neither becomes a
	// target nor falls through to a name.
	if _, err := Parse("v1.5"); err == nil {
		t.Fatalf("volume beyond 1.0 must be rejected")
	}
}

func TestParseChord(t *testing.T) {
	root := mustParse(t, "c4'maj7")
	chord := root.Children[0]
	if chord.Kind != KindChord {
		t.Fatalf("expected chord, got kind %d", chord.Kind)
	}
	if len(chord.Chord) != 4 || int(chord.Chord[0]) != 60 || int(chord.Chord[3]) != 71 {
		t.Fatalf("unexpected chord notes %v", chord.Chord)
	}
	if _, err := Parse("c4'nochord"); err == nil {
		t.Fatalf("unknown chord name should fail at parse time")
	}
}

func TestParseNumbersAndRange(t *testing.T) {
	root := mustParse(t, "60 0x3c 1.5 0..3")
	if root.Children[0].Kind != KindNumber || root.Children[0].Num != 60 {
		t.Fatalf("expected number 60")
	}
	if root.Children[1].Num != 60 || !root.Children[1].IsInt {
		t.Fatalf("hex 0x3c should parse as integer 60, got %+v", root.Children[1])
	}
	if root.Children[2].IsInt || root.Children[2].Num != 1.5 {
		t.Fatalf("expected float 1.5")
	}
	// Range expands in place to 4 sibling number steps.
	if len(root.Children) != 3+4 {
		t.Fatalf("expected range to splice 4 steps, got %d children", len(root.Children))
	}
	if root.Children[3].Num != 0 || root.Children[6].Num != 3 {
		t.Fatalf("range values wrong: %v..%v", root.Children[3].Num, root.Children[6].Num)
	}
}

func TestStandaloneRepeat(t *testing.T) {
	root := mustParse(t, "c4 ! d4")
	if len(root.Children) != 3 {
		t.Fatalf("'!' should duplicate the previous step, got %d children", len(root.Children))
	}
	if root.Children[0] != root.Children[1] {
		t.Fatalf("duplicated step should reference the same node")
	}
	if _, err := Parse("! c4"); err == nil {
		t.Fatalf("leading '!' should fail")
	}
}

func TestParseErrorsCarryPosition(t *testing.T) {
	_, err := Parse("c4 [d4")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if parseErr.Line != 1 || parseErr.Column < 4 {
		t.Fatalf("unexpected error position %d:%d", parseErr.Line, parseErr.Column)
	}
	_, err = Parse("c4\nd4 ]")
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if parseErr.Line != 2 {
		t.Fatalf("error should be on line 2, got line %d", parseErr.Line)
	}
	if !strings.Contains(parseErr.Error(), "line 2") {
		t.Fatalf("message should mention the line: %q", parseErr.Error())
	}
}

func TestParseOctaveOutOfRange(t *testing.T) {
	if _, err := Parse("c11"); err == nil {
		t.Fatalf("octave 11 should fail")
	}
}

func TestWhitespaceVariants(t *testing.T) {
	mustParse(t, "c4\td4\ne4 f4")
}
