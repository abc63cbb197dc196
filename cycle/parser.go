package cycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cbegin/pattrns-go/note"
	"github.com/cbegin/pattrns-go/rational"
)

// ParseError carries the byte offset and line/column of a grammar or
// semantic violation in a cycle string.
type ParseError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

type parser struct {
	src    string
	pos    int
	nextID int
}

// Parse compiles a mini-notation cycle string into an immutable AST.
func Parse(src string) (*Node, error) {
	p := &parser{src: src}
	root, err := p.parseSections("")
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf(p.pos, "unexpected %q", p.src[p.pos])
	}
	return root, nil
}

func (p *parser) errorf(at int, format string, args ...any) *ParseError {
	line, col := 1, 1
	for i := 0; i < at && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &ParseError{
		Offset: at,
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (p *parser) newNode(kind NodeKind) *Node {
	p.nextID++
	return &Node{Kind: kind, id: p.nextID}
}

// parseSections parses section ((','|'.'|'|') section)* until EOF or one of
// the closing bytes in stop, and combines the sections. Stack (',') binds
// loosest, then choice ('|'), then channel split ('.'): a mixed
// "a , b | c . d" stacks first, so each stack lane keeps its own combinator.
func (p *parser) parseSections(stop string) (*Node, error) {
	type part struct {
		node *Node
		sep  byte // separator before this part; 0 for the first
	}
	parts := []part{}
	sep := byte(0)
	for {
		sec, err := p.parseSection(stop)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{node: sec, sep: sep})
		p.skipSpace()
		if p.pos >= len(p.src) || strings.IndexByte(stop, p.src[p.pos]) >= 0 {
			break
		}
		switch c := p.src[p.pos]; c {
		case ',', '|':
			sep = c
			p.pos++
		case '.':
			sep = c
			p.pos++
		default:
			return nil, p.errorf(p.pos, "unexpected %q", p.src[p.pos])
		}
	}
	nodes := make([]*Node, len(parts))
	seps := make([]byte, len(parts))
	for i, pt := range parts {
		nodes[i] = pt.node
		seps[i] = pt.sep
	}
	return p.combine(nodes, seps), nil
}

// combine folds a flat separator list into Stack/Choice nodes, splitting on
// ',' first, then '|', then '.'.
func (p *parser) combine(nodes []*Node, seps []byte) *Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	for _, sep := range []byte{',', '|', '.'} {
		found := false
		for _, s := range seps[1:] {
			if s == sep {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		kind := KindStack
		if sep == '|' {
			kind = KindChoice
		}
		group := p.newNode(kind)
		chunkNodes := []*Node{nodes[0]}
		chunkSeps := []byte{0}
		flush := func() {
			group.Children = append(group.Children, p.combine(chunkNodes, chunkSeps))
		}
		for i := 1; i < len(nodes); i++ {
			if seps[i] == sep {
				flush()
				chunkNodes = []*Node{nodes[i]}
				chunkSeps = []byte{0}
			} else {
				chunkNodes = append(chunkNodes, nodes[i])
				chunkSeps = append(chunkSeps, seps[i])
			}
		}
		flush()
		return group
	}
	return nodes[0]
}

// parseSection parses a run of elements up to a separator, closing bracket
// or EOF and returns them as a sequence node.
func (p *parser) parseSection(stop string) (*Node, error) {
	seq := p.newNode(KindSequence)
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}
		c := p.src[p.pos]
		if strings.IndexByte(stop, c) >= 0 || c == ',' || c == '|' {
			break
		}
		if c == '.' && !p.dotStartsNumber() {
			break
		}
		if c == ']' || c == '>' || c == '}' || c == ')' {
			if stop == "" {
				return nil, p.errorf(p.pos, "unmatched %q", c)
			}
			break
		}
		if c == '!' {
			// Standalone repeat: duplicate the previous element.
			at := p.pos
			p.pos++
			count := 1
			if v, ok := p.scanInt(); ok {
				if v < 1 {
					return nil, p.errorf(at, "repeat count must be >= 1")
				}
				count = v - 1
			}
			if len(seq.Children) == 0 {
				return nil, p.errorf(at, "'!' with no preceding element")
			}
			prev := seq.Children[len(seq.Children)-1]
			for i := 0; i < count; i++ {
				seq.Children = append(seq.Children, prev)
			}
			continue
		}
		elem, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		elem, err = p.parseOps(elem)
		if err != nil {
			return nil, err
		}
		if elem.Kind == KindSequence && elem.splice {
			seq.Children = append(seq.Children, elem.Children...)
			continue
		}
		seq.Children = append(seq.Children, elem)
	}
	return seq, nil
}

// dotStartsNumber distinguishes a leading-dot float (".25") from the channel
// split separator.
func (p *parser) dotStartsNumber() bool {
	return p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]) && (p.pos == 0 || !isDigit(p.src[p.pos-1]))
}

func (p *parser) parseElement() (*Node, error) {
	c := p.src[p.pos]
	switch {
	case c == '[':
		p.pos++
		inner, err := p.parseSections("]")
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return inner, nil
	case c == '<':
		at := p.pos
		p.pos++
		inner, err := p.parseSections(">")
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		alt := p.newNode(KindAlternation)
		alt.Children = branchesOf(inner)
		if len(alt.Children) == 0 {
			return nil, p.errorf(at, "empty alternation")
		}
		return alt, nil
	case c == '{':
		at := p.pos
		p.pos++
		inner, err := p.parseSections("}")
		if err != nil {
			return nil, err
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		poly := p.newNode(KindPolymeter)
		if inner.Kind == KindStack {
			poly.Children = inner.Children
		} else {
			poly.Children = []*Node{inner}
		}
		if len(poly.Children) == 0 || len(branchesOf(poly.Children[0])) == 0 {
			return nil, p.errorf(at, "empty polymeter")
		}
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '%' {
			p.pos++
			p.skipSpace()
			v, ok := p.scanInt()
			if !ok || v < 1 {
				return nil, p.errorf(p.pos, "polymeter steps must be a positive integer")
			}
			poly.Steps = v
		}
		return poly, nil
	case c == '~':
		p.pos++
		n := p.newNode(KindRest)
		n.Raw = "~"
		return n, nil
	case c == '-' && !p.minusStartsNumber():
		p.pos++
		n := p.newNode(KindRest)
		n.Raw = "-"
		return n, nil
	case c == '_':
		p.pos++
		n := p.newNode(KindHold)
		n.Raw = "_"
		return n, nil
	case c == '#':
		return p.parseInstrumentTarget()
	case isDigit(c) || c == '-' || c == '.':
		return p.parseNumberOrRange()
	case isAlpha(c):
		return p.parseWordlike()
	default:
		return nil, p.errorf(p.pos, "unexpected %q", c)
	}
}

func (p *parser) minusStartsNumber() bool {
	return p.pos+1 < len(p.src) && (isDigit(p.src[p.pos+1]) || p.src[p.pos+1] == '.')
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return p.errorf(p.pos, "expected %q", c)
	}
	p.pos++
	return nil
}

// branchesOf returns the step list of a bracketed body: the children of a
// plain sequence, or the node itself as a single branch.
func branchesOf(n *Node) []*Node {
	if n.Kind == KindSequence {
		return n.Children
	}
	return []*Node{n}
}

func (p *parser) parseInstrumentTarget() (*Node, error) {
	at := p.pos
	p.pos++ // '#'
	v, ok := p.scanInt()
	if !ok || v < 0 {
		return nil, p.errorf(at, "instrument target needs a non-negative integer")
	}
	n := p.newNode(KindTarget)
	n.Attr = Attribute{Kind: AttrInstrument, Value: float64(v)}
	n.Raw = p.src[at:p.pos]
	return n, nil
}

// parseNumberOrRange parses a numeric literal, or an integer range a..b
// which expands to a sequence of number steps.
func (p *parser) parseNumberOrRange() (*Node, error) {
	at := p.pos
	val, isInt, ok := p.scanNumber()
	if !ok {
		return nil, p.errorf(at, "malformed number")
	}
	if isInt && p.pos+1 < len(p.src) && p.src[p.pos] == '.' && p.src[p.pos+1] == '.' {
		p.pos += 2
		to, toInt, ok := p.scanNumber()
		if !ok || !toInt {
			return nil, p.errorf(p.pos, "range bounds must be integers")
		}
		seq := p.newNode(KindSequence)
		seq.splice = true
		from, upto := int(val), int(to)
		step := 1
		if upto < from {
			step = -1
		}
		for v := from; ; v += step {
			num := p.newNode(KindNumber)
			num.Num = float64(v)
			num.IsInt = true
			num.Raw = strconv.Itoa(v)
			seq.Children = append(seq.Children, num)
			if v == upto {
				break
			}
		}
		return seq, nil
	}
	n := p.newNode(KindNumber)
	n.Num = val
	n.IsInt = isInt
	n.Raw = p.src[at:p.pos]
	return n, nil
}

// parseWordlike handles pitches, chords, attribute targets and bare names,
// which all begin with a letter.
func (p *parser) parseWordlike() (*Node, error) {
	at := p.pos
	word := p.scanWord()

	// Single letter followed by a float: an attribute target (p-1.0, d.25).
	if len(word) == 1 && p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+' || p.src[p.pos] == '.') {
		if attr, ok := p.scanTargetValue(word[0]); ok {
			n := p.newNode(KindTarget)
			n.Attr = attr
			n.Raw = p.src[at:p.pos]
			return n, nil
		}
		// An out-of-range volume, panning or delay float is an error.
		save := p.pos
		if val, isInt, ok := p.scanNumber(); ok && !isInt {
			if _, err := makeAttr(word[0], val); err != nil {
				return nil, p.errorf(at, "%v", err)
			}
		}
		p.pos = save
	}
	// Letter plus digits re-joined by a dot: v0.5 scans as word "v0" + ".5".
	if isAlpha(word[0]) && len(word) > 1 && allDigits(word[1:]) &&
		p.pos+1 < len(p.src) && p.src[p.pos] == '.' && isDigit(p.src[p.pos+1]) {
		if attr, ok := p.reparseTarget(at); ok {
			n := p.newNode(KindTarget)
			n.Attr = attr
			n.Raw = p.src[at:p.pos]
			return n, nil
		}
		// An out-of-range volume, panning or delay float is an error.
		save := p.pos
		p.pos = at + 1
		if val, isInt, ok := p.scanNumber(); ok && !isInt {
			if _, err := makeAttr(word[0], val); err != nil {
				return nil, p.errorf(at, "%v", err)
			}
		}
		p.pos = save
	}

	if pn, ok := pitchWord(word); ok {
		if p.pos < len(p.src) && p.src[p.pos] == '\'' {
			p.pos++
			mode := p.scanChordMode()
			if mode == "" {
				return nil, p.errorf(p.pos, "chord name missing after '")
			}
			notes, err := note.Chord(pn, mode)
			if err != nil {
				return nil, p.errorf(at, "%v", err)
			}
			n := p.newNode(KindChord)
			n.Chord = notes
			n.Raw = p.src[at:p.pos]
			return n, nil
		}
		if err := checkOctave(word); err != nil {
			return nil, p.errorf(at, "%v", err)
		}
		n := p.newNode(KindPitch)
		n.Note = pn
		n.Raw = word
		return n, nil
	}

	n := p.newNode(KindName)
	n.Name = word
	n.Raw = word
	return n, nil
}

// pitchWord reports whether a word token is a pitch literal and parses it.
func pitchWord(w string) (note.Note, bool) {
	if len(w) == 0 {
		return note.Rest, false
	}
	c := lower(w[0])
	if c < 'a' || c > 'g' {
		return note.Rest, false
	}
	i := 1
	if i < len(w) && (w[i] == '#' || lower(w[i]) == 'b') {
		i++
	}
	for i < len(w) && isDigit(w[i]) {
		i++
	}
	if i != len(w) {
		return note.Rest, false
	}
	n, err := note.Parse(w)
	if err != nil {
		// Octave out of range is still pitch shaped; the caller reports it.
		if _, ok := err.(*note.ValueError); ok {
			return note.Rest, true
		}
		return note.Rest, false
	}
	return n, true
}

func checkOctave(w string) error {
	_, err := note.Parse(w)
	return err
}

// scanTargetValue reads the float of an attribute target whose letter was
// already consumed.
func (p *parser) scanTargetValue(letter byte) (Attribute, bool) {
	save := p.pos
	val, isInt, ok := p.scanNumber()
	if !ok || isInt {
		p.pos = save
		return Attribute{}, false
	}
	attr, err := makeAttr(letter, val)
	if err != nil {
		p.pos = save
		return Attribute{}, false
	}
	return attr, true
}

// reparseTarget rescans from the word start as letter+float ("v0.5").
func (p *parser) reparseTarget(wordStart int) (Attribute, bool) {
	letter := lower(p.src[wordStart])
	save := p.pos
	p.pos = wordStart + 1
	val, isInt, ok := p.scanNumber()
	if !ok || isInt {
		p.pos = save
		return Attribute{}, false
	}
	attr, err := makeAttr(letter, val)
	if err != nil {
		p.pos = save
		return Attribute{}, false
	}
	return attr, true
}

func makeAttr(letter byte, val float64) (Attribute, error) {
	switch lower(letter) {
	case 'v':
		if val < 0 || val > 1 {
			return Attribute{}, fmt.Errorf("volume %g out of range 0..1", val)
		}
		return Attribute{Kind: AttrVolume, Value: val}, nil
	case 'p':
		if val < -1 || val > 1 {
			return Attribute{}, fmt.Errorf("panning %g out of range -1..1", val)
		}
		return Attribute{Kind: AttrPanning, Value: val}, nil
	case 'd':
		if val < 0 || val > 1 {
			return Attribute{}, fmt.Errorf("delay %g out of range 0..1", val)
		}
		return Attribute{Kind: AttrDelay, Value: val}, nil
	default:
		return Attribute{Kind: AttrNamed, Name: string(letter), Value: val}, nil
	}
}

// parseOps parses the operator chain following a single or group.
func (p *parser) parseOps(inner *Node) (*Node, error) {
	var ops []Op
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '*', '/':
			at := p.pos
			p.pos++
			p.skipSpace()
			v, ok := p.scanInt()
			if !ok || v < 1 {
				return nil, p.errorf(at, "%q needs a positive integer", c)
			}
			kind := OpFast
			if c == '/' {
				kind = OpSlow
			}
			ops = append(ops, Op{Kind: kind, Amount: v})
		case '!':
			at := p.pos
			if p.pos+1 >= len(p.src) || !isDigit(p.src[p.pos+1]) {
				// Bare '!' is the standalone repeat element, not an op.
				return wrapOps(p, inner, ops), nil
			}
			p.pos++
			v, ok := p.scanInt()
			if !ok || v < 1 {
				return nil, p.errorf(at, "'!' needs a positive integer")
			}
			ops = append(ops, Op{Kind: OpRepeat, Amount: v})
		case '@':
			at := p.pos
			p.pos++
			w, ok := p.scanRat()
			if !ok {
				w = rational.One
			}
			if w.Num() <= 0 {
				return nil, p.errorf(at, "weight must be positive")
			}
			ops = append(ops, Op{Kind: OpWeight, Weight: w})
		case '?':
			p.pos++
			prob := 0.5
			if p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
				v, _, ok := p.scanNumber()
				if !ok || v < 0 || v > 1 {
					return nil, p.errorf(p.pos, "degrade probability must be in 0..1")
				}
				prob = v
			}
			ops = append(ops, Op{Kind: OpDegrade, Prob: prob})
		case ':':
			op, err := p.parseTargetOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		case '(':
			op, err := p.parseEuclidOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		default:
			return wrapOps(p, inner, ops), nil
		}
	}
	return wrapOps(p, inner, ops), nil
}

func wrapOps(p *parser, inner *Node, ops []Op) *Node {
	if len(ops) == 0 {
		return inner
	}
	expr := p.newNode(KindExpression)
	expr.Inner = inner
	expr.Ops = ops
	return expr
}

func (p *parser) parseTargetOp() (Op, error) {
	at := p.pos
	p.pos++ // ':'
	if p.pos >= len(p.src) {
		return Op{}, p.errorf(at, "':' needs a target")
	}
	c := p.src[p.pos]
	switch {
	case c == '#':
		p.pos++
		v, ok := p.scanInt()
		if !ok || v < 0 {
			return Op{}, p.errorf(at, "instrument target needs a non-negative integer")
		}
		return Op{Kind: OpTarget, Attr: Attribute{Kind: AttrInstrument, Value: float64(v)}}, nil
	case isDigit(c):
		v, ok := p.scanInt()
		if !ok {
			return Op{}, p.errorf(at, "malformed instrument target")
		}
		return Op{Kind: OpTarget, Attr: Attribute{Kind: AttrInstrument, Value: float64(v)}}, nil
	case isAlpha(c):
		word := p.scanWord()
		// Single-letter float target: v0.5, p-0.5, d.25.
		if len(word) >= 1 {
			if attr, ok := p.reparseTarget(p.pos - len(word)); ok {
				return Op{Kind: OpTarget, Attr: attr}, nil
			}
			if attr, ok := splitLetterFloat(word); ok {
				return Op{Kind: OpTarget, Attr: attr}, nil
			}
		}
		// Named attribute, optionally :name=value.
		val := 1.0
		if p.pos < len(p.src) && p.src[p.pos] == '=' {
			p.pos++
			v, _, ok := p.scanNumber()
			if !ok {
				return Op{}, p.errorf(p.pos, "malformed attribute value")
			}
			val = v
		}
		return Op{Kind: OpTarget, Attr: Attribute{Kind: AttrNamed, Name: word, Value: val}}, nil
	default:
		return Op{}, p.errorf(at, "':' needs a target")
	}
}

// splitLetterFloat handles ":v0" style tokens where the whole value scanned
// into the word ("v0" with no dot would be a name; "v0" followed by ".5" is
// handled by reparseTarget before we get here).
func splitLetterFloat(word string) (Attribute, bool) {
	if len(word) < 2 || !allDigits(word[1:]) {
		return Attribute{}, false
	}
	v, err := strconv.ParseFloat(word[1:], 64)
	if err != nil {
		return Attribute{}, false
	}
	attr, err := makeAttr(word[0], v)
	if err != nil {
		return Attribute{}, false
	}
	return attr, true
}

func (p *parser) parseEuclidOp() (Op, error) {
	at := p.pos
	p.pos++ // '('
	args := []int{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Op{}, p.errorf(at, "unterminated euclidean expression")
		}
		// Only literal numbers are accepted inside (k,n,r).
		v, ok := p.scanSignedInt()
		if !ok {
			return Op{}, p.errorf(p.pos, "euclidean arguments must be literal integers")
		}
		args = append(args, v)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return Op{}, err
	}
	if len(args) < 2 || len(args) > 3 {
		return Op{}, p.errorf(at, "euclidean expression takes 2 or 3 arguments")
	}
	op := Op{Kind: OpEuclid, K: args[0], N: args[1]}
	if len(args) == 3 {
		op.Rotate = args[2]
	}
	if op.N < 1 || op.K < 0 || op.K > op.N {
		return Op{}, p.errorf(at, "euclidean (k,n) needs 0 <= k <= n and n >= 1")
	}
	return op, nil
}

// --- token scanning -------------------------------------------------------

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		// NBSP (U+00A0) counts as whitespace.
		if c == 0xc2 && p.pos+1 < len(p.src) && p.src[p.pos+1] == 0xa0 {
			p.pos += 2
			continue
		}
		break
	}
}

func (p *parser) scanWord() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isAlnum(c) || c == '_' || c == '#' {
			// '#' only continues a word as a pitch accidental right after
			// the letter (c# but not bd#).
			if c == '#' && p.pos != start+1 {
				break
			}
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) scanChordMode() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isAlnum(c) || c == '#' || c == '-' || c == '+' || c == '^' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) scanInt() (int, bool) {
	start := p.pos
	if p.pos+1 < len(p.src) && p.src[p.pos] == '0' && lower(p.src[p.pos+1]) == 'x' {
		p.pos += 2
		hexStart := p.pos
		for p.pos < len(p.src) && isHexDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == hexStart {
			p.pos = start
			return 0, false
		}
		v, err := strconv.ParseInt(p.src[hexStart:p.pos], 16, 64)
		if err != nil {
			p.pos = start
			return 0, false
		}
		return int(v), true
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	v, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		p.pos = start
		return 0, false
	}
	return v, true
}

func (p *parser) scanSignedInt() (int, bool) {
	start := p.pos
	sign := 1
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
		if p.src[p.pos] == '-' {
			sign = -1
		}
		p.pos++
	}
	v, ok := p.scanInt()
	if !ok {
		p.pos = start
		return 0, false
	}
	return sign * v, true
}

// scanNumber parses an optionally signed decimal or hex literal. Hex is
// integer only.
func (p *parser) scanNumber() (float64, bool, bool) {
	start := p.pos
	sign := 1.0
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
		if p.src[p.pos] == '-' {
			sign = -1
		}
		p.pos++
	}
	if p.pos+1 < len(p.src) && p.src[p.pos] == '0' && lower(p.src[p.pos+1]) == 'x' {
		v, ok := p.scanInt()
		if !ok {
			p.pos = start
			return 0, false, false
		}
		return sign * float64(v), true, true
	}
	digitsStart := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	intDigits := p.pos - digitsStart
	isInt := true
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		// "0..3" range: the dot belongs to the range operator.
		if !(p.pos+1 < len(p.src) && p.src[p.pos+1] == '.') {
			if p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]) {
				isInt = false
				p.pos++
				for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
					p.pos++
				}
			}
		}
	}
	if intDigits == 0 && isInt {
		p.pos = start
		return 0, false, false
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		p.pos = start
		return 0, false, false
	}
	return v, isInt, true
}

// scanRat parses a decimal literal as an exact rational (for weights).
func (p *parser) scanRat() (rational.Rat, bool) {
	start := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	intPart := p.src[start:p.pos]
	fracPart := ""
	if p.pos+1 < len(p.src) && p.src[p.pos] == '.' && isDigit(p.src[p.pos+1]) {
		p.pos++
		fracStart := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		fracPart = p.src[fracStart:p.pos]
	}
	if intPart == "" && fracPart == "" {
		p.pos = start
		return rational.Zero, false
	}
	num := int64(0)
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			p.pos = start
			return rational.Zero, false
		}
		num = v
	}
	den := int64(1)
	for range fracPart {
		den *= 10
	}
	if fracPart != "" {
		v, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			p.pos = start
			return rational.Zero, false
		}
		num = num*den + v
	}
	return rational.New(num, den), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isHexDigit(c byte) bool {
	return isDigit(c) || (lower(c) >= 'a' && lower(c) <= 'f')
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}
