package cycle

import (
	"github.com/cbegin/pattrns-go/note"
	"github.com/cbegin/pattrns-go/rational"
	"github.com/cbegin/pattrns-go/rng"
)

type ValueKind int

const (
	ValueRest ValueKind = iota + 1
	ValueHold
	ValueNote
	ValueChord
	ValueNumber
	ValueName
	ValueTarget
)

// Value is the parsed semantic payload of one interpreted step.
type Value struct {
	Kind  ValueKind
	Note  note.Note
	Chord []note.Note
	Num   float64
	IsInt bool
	Name  string
	Attrs []Attribute // attributes attached via ':' targets
}

// Event is one time-stamped emission within a channel for one cycle run.
// Times are rational positions within the run, with the full run covering
// [0, 1).
type Event struct {
	Channel int // 1-based
	Step    int // 1-based since the last reset
	Time    rational.Rat
	Length  rational.Rat
	Raw     string
	Value   Value
}

type span struct {
	start  rational.Rat
	length rational.Rat
}

func (s span) end() rational.Rat { return s.start.Add(s.length) }

// Evaluator holds all per-run state for one pattern instance: alternation
// and slow counters, polymeter phases and channel step numbering. The AST it
// interprets is immutable and may be shared between evaluators.
type Evaluator struct {
	root       *Node
	width      int
	runIndex   int
	counters   map[int]int   // alternation / slow counters, by node id
	polyPhases map[int][]int // polymeter phase per node id and channel
	stepCounts []int         // per lane, events numbered since reset
}

func NewEvaluator(root *Node) *Evaluator {
	return &Evaluator{
		root:       root,
		width:      nodeWidth(root),
		counters:   map[int]int{},
		polyPhases: map[int][]int{},
	}
}

// Channels returns the number of parallel channels the cycle produces.
func (e *Evaluator) Channels() int { return e.width }

// RunIndex returns the count of completed runs since the last reset.
func (e *Evaluator) RunIndex() int { return e.runIndex }

// Reset rewinds all per-run state.
func (e *Evaluator) Reset() {
	e.runIndex = 0
	e.counters = map[int]int{}
	e.polyPhases = map[int][]int{}
	e.stepCounts = nil
}

// Run interprets one full cycle over [0, 1) and returns the events per
// channel, sorted by start time, with holds merged into the preceding onset.
// Random draws (choice, degrade) derive from rnd's seed, the current run
// index and the node identity, so seeded playback reproduces exactly.
func (e *Evaluator) Run(rnd *rng.Rand) [][]Event {
	r := &runState{
		eval:       e,
		rnd:        rnd,
		lanes:      make([][]Event, e.width),
		evalCounts: map[int]int{},
	}
	r.evalNode(e.root, span{start: rational.Zero, length: rational.One}, 0)
	e.runIndex++

	if len(e.stepCounts) < len(r.lanes) {
		grown := make([]int, len(r.lanes))
		copy(grown, e.stepCounts)
		e.stepCounts = grown
	}
	out := make([][]Event, len(r.lanes))
	for lane, events := range r.lanes {
		sortEventsStable(events)
		merged := mergeHolds(events)
		for i := range merged {
			e.stepCounts[lane]++
			merged[i].Channel = lane + 1
			merged[i].Step = e.stepCounts[lane]
		}
		out[lane] = merged
	}
	return out
}

type runState struct {
	eval       *Evaluator
	rnd        *rng.Rand
	lanes      [][]Event
	evalCounts map[int]int
}

func (r *runState) emit(lane int, ev Event) {
	for lane >= len(r.lanes) {
		r.lanes = append(r.lanes, nil)
	}
	r.lanes[lane] = append(r.lanes[lane], ev)
}

// branch returns a derived generator for a random draw at the given node,
// folding in the run index and the node's evaluation count within this run.
func (r *runState) branch(nodeID int) rng.Rand {
	count := r.evalCounts[nodeID]
	r.evalCounts[nodeID] = count + 1
	return r.rnd.ForStep(uint64(r.eval.runIndex), uint64(nodeID), uint64(count))
}

func (r *runState) evalNode(n *Node, sp span, lane int) {
	switch n.Kind {
	case KindRest:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueRest}})
	case KindHold:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueHold}})
	case KindPitch:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueNote, Note: n.Note}})
	case KindChord:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueChord, Chord: n.Chord}})
	case KindNumber:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueNumber, Num: n.Num, IsInt: n.IsInt}})
	case KindName:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueName, Name: n.Name}})
	case KindTarget:
		r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: n.Raw, Value: Value{Kind: ValueTarget, Attrs: []Attribute{n.Attr}}})
	case KindSequence:
		r.evalSequence(n, sp, lane)
	case KindStack:
		offset := 0
		for _, child := range n.Children {
			r.evalNode(child, sp, lane+offset)
			offset += nodeWidth(child)
		}
	case KindChoice:
		rnd := r.branch(n.id)
		idx := rnd.IntN(len(n.Children))
		r.evalNode(n.Children[idx], sp, lane)
	case KindAlternation:
		count := r.eval.counters[n.id]
		r.eval.counters[n.id] = count + 1
		r.evalNode(n.Children[count%len(n.Children)], sp, lane)
	case KindPolymeter:
		r.evalPolymeter(n, sp, lane)
	case KindExpression:
		r.evalOps(n, n.Inner, n.Ops, sp, lane)
	}
}

func (r *runState) evalSequence(n *Node, sp span, lane int) {
	steps := expandSteps(n.Children)
	if len(steps) == 0 {
		return
	}
	total := rational.Zero
	for _, st := range steps {
		total = total.Add(st.weight)
	}
	cursor := sp.start
	for _, st := range steps {
		length := sp.length.Mul(st.weight).Div(total)
		r.evalNode(st.node, span{start: cursor, length: length}, lane)
		cursor = cursor.Add(length)
	}
}

// expandSteps peels repeat and weight operators off sequence children:
// a!3 contributes three unit steps, a@3 contributes one step of weight 3.
func expandSteps(children []*Node) []step {
	out := make([]step, 0, len(children))
	for _, child := range children {
		count := 1
		weight := rational.One
		node := child
		if child.Kind == KindExpression {
			remaining := make([]Op, 0, len(child.Ops))
			for _, op := range child.Ops {
				switch op.Kind {
				case OpRepeat:
					count *= op.Amount
				case OpWeight:
					weight = op.Weight
				default:
					remaining = append(remaining, op)
				}
			}
			if len(remaining) != len(child.Ops) {
				if len(remaining) == 0 {
					node = child.Inner
				} else {
					trimmed := *child
					trimmed.Ops = remaining
					node = &trimmed
				}
			}
		}
		for i := 0; i < count; i++ {
			out = append(out, step{node: node, weight: weight})
		}
	}
	return out
}

func (r *runState) evalPolymeter(n *Node, sp span, lane int) {
	channels := make([][]step, len(n.Children))
	for i, child := range n.Children {
		channels[i] = expandSteps(branchesOf(child))
	}
	stepsPerRun := n.Steps
	if stepsPerRun == 0 {
		stepsPerRun = len(channels[0])
	}
	if stepsPerRun == 0 {
		return
	}
	phases := r.eval.polyPhases[n.id]
	if len(phases) < len(channels) {
		phases = append(phases, make([]int, len(channels)-len(phases))...)
	}
	slotLen := sp.length.DivInt(int64(stepsPerRun))
	offset := 0
	for c, chSteps := range channels {
		if len(chSteps) == 0 {
			offset += nodeWidth(n.Children[c])
			continue
		}
		cursor := sp.start
		for s := 0; s < stepsPerRun; s++ {
			item := chSteps[(phases[c]+s)%len(chSteps)]
			r.evalNode(item.node, span{start: cursor, length: slotLen}, lane+offset)
			cursor = cursor.Add(slotLen)
		}
		phases[c] += stepsPerRun
		offset += nodeWidth(n.Children[c])
	}
	r.eval.polyPhases[n.id] = phases
}

// evalOps applies the operator chain right to left: the last operator
// transforms the expression formed by the ones before it.
func (r *runState) evalOps(expr *Node, inner *Node, ops []Op, sp span, lane int) {
	if len(ops) == 0 {
		r.evalNode(inner, sp, lane)
		return
	}
	op := ops[len(ops)-1]
	rest := ops[:len(ops)-1]
	switch op.Kind {
	case OpFast:
		slotLen := sp.length.DivInt(int64(op.Amount))
		cursor := sp.start
		for i := 0; i < op.Amount; i++ {
			r.evalOps(expr, inner, rest, span{start: cursor, length: slotLen}, lane)
			cursor = cursor.Add(slotLen)
		}
	case OpSlow:
		// Stretch over op.Amount runs: each run shows one window of the
		// expanded span; events starting outside the window are dropped.
		count := r.eval.counters[expr.id]
		r.eval.counters[expr.id] = count + 1
		phase := count % op.Amount
		virtual := span{
			start:  sp.start.Sub(sp.length.MulInt(int64(phase))),
			length: sp.length.MulInt(int64(op.Amount)),
		}
		marks := r.laneMarks()
		r.evalOps(expr, inner, rest, virtual, lane)
		r.clipToWindow(marks, sp)
	case OpDegrade:
		rnd := r.branch(expr.id)
		if rnd.Float64() < op.Prob {
			r.emit(lane, Event{Time: sp.start, Length: sp.length, Raw: inner.Raw, Value: Value{Kind: ValueRest}})
			return
		}
		r.evalOps(expr, inner, rest, sp, lane)
	case OpTarget:
		marks := r.laneMarks()
		r.evalOps(expr, inner, rest, sp, lane)
		r.attachAttr(marks, op.Attr)
	case OpEuclid:
		mask := bjorklund(op.K, op.N, op.Rotate)
		slotLen := sp.length.DivInt(int64(op.N))
		cursor := sp.start
		for _, onset := range mask {
			slot := span{start: cursor, length: slotLen}
			if onset {
				r.evalOps(expr, inner, rest, slot, lane)
			} else {
				r.emit(lane, Event{Time: slot.start, Length: slot.length, Value: Value{Kind: ValueRest}})
			}
			cursor = cursor.Add(slotLen)
		}
	case OpRepeat, OpWeight:
		// Normally peeled by the enclosing sequence; standing alone (e.g. a
		// bracketed group at top level) repeat behaves like fast and weight
		// is a no-op.
		if op.Kind == OpRepeat {
			fast := op
			fast.Kind = OpFast
			// Copy: rest aliases the node's immutable op slice.
			chain := append(append(make([]Op, 0, len(rest)+1), rest...), fast)
			r.evalOps(expr, inner, chain, sp, lane)
			return
		}
		r.evalOps(expr, inner, rest, sp, lane)
	}
}

// laneMarks snapshots per-lane event counts so a transform can be applied to
// just the events a subtree emitted.
func (r *runState) laneMarks() []int {
	marks := make([]int, len(r.lanes))
	for i := range r.lanes {
		marks[i] = len(r.lanes[i])
	}
	return marks
}

func (r *runState) attachAttr(marks []int, attr Attribute) {
	for lane := range r.lanes {
		from := 0
		if lane < len(marks) {
			from = marks[lane]
		}
		for i := from; i < len(r.lanes[lane]); i++ {
			ev := &r.lanes[lane][i]
			if ev.Value.Kind == ValueRest || ev.Value.Kind == ValueHold {
				continue
			}
			ev.Value.Attrs = append(ev.Value.Attrs, attr)
		}
	}
}

func (r *runState) clipToWindow(marks []int, window span) {
	end := window.end()
	for lane := range r.lanes {
		from := 0
		if lane < len(marks) {
			from = marks[lane]
		}
		kept := r.lanes[lane][:from]
		for _, ev := range r.lanes[lane][from:] {
			if ev.Time.Cmp(window.start) >= 0 && ev.Time.Less(end) {
				kept = append(kept, ev)
			}
		}
		r.lanes[lane] = kept
	}
}

// nodeWidth is the number of channel lanes a node occupies: stacks add, the
// rest take the widest child.
func nodeWidth(n *Node) int {
	switch n.Kind {
	case KindStack, KindPolymeter:
		total := 0
		for _, child := range n.Children {
			total += nodeWidth(child)
		}
		if total == 0 {
			return 1
		}
		return total
	case KindSequence, KindChoice, KindAlternation:
		widest := 1
		for _, child := range n.Children {
			if w := nodeWidth(child); w > widest {
				widest = w
			}
		}
		return widest
	case KindExpression:
		return nodeWidth(n.Inner)
	default:
		return 1
	}
}

func sortEventsStable(events []Event) {
	// Insertion sort: event lists are nearly sorted already since sequences
	// emit in time order; only alternation of stacks reorders.
	for i := 1; i < len(events); i++ {
		key := events[i]
		k := i - 1
		for k >= 0 && key.Time.Less(events[k].Time) {
			events[k+1] = events[k]
			k--
		}
		events[k+1] = key
	}
}

// mergeHolds folds hold steps into the preceding onset's length. A hold with
// no preceding onset degrades to a rest.
func mergeHolds(events []Event) []Event {
	out := events[:0]
	for _, ev := range events {
		if ev.Value.Kind == ValueHold {
			if len(out) > 0 {
				prev := &out[len(out)-1]
				prev.Length = prev.Length.Add(ev.Length)
				continue
			}
			ev.Value = Value{Kind: ValueRest}
		}
		out = append(out, ev)
	}
	return out
}
