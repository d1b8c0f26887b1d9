package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("trace: syntax error")

// Header counts above these bounds are rejected. Replay keeps one slot per
// id, so NumIDs sizes an allocation up front.
const (
	MaxIDs = 1 << 20
	MaxOps = 1 << 26

	// opsPrealloc caps the Ops capacity reserved from the header.
	opsPrealloc = 1 << 16
)

// Kind is an operation type.
type Kind byte

const (
	Alloc   Kind = 'a'
	Free    Kind = 'f'
	Realloc Kind = 'r'
)

func (k Kind) String() string {
	switch k {
	case Alloc:
		return "alloc"
	case Free:
		return "free"
	case Realloc:
		return "realloc"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Op is one trace line. Size is unused for Free.
type Op struct {
	Kind Kind
	ID   int
	Size int
}

func (o Op) String() string {
	if o.Kind == Free {
		return fmt.Sprintf("%c %d", o.Kind, o.ID)
	}
	return fmt.Sprintf("%c %d %d", o.Kind, o.ID, o.Size)
}

// Trace is a parsed trace file.
type Trace struct {
	SuggestedHeap int
	NumIDs        int
	Weight        int
	Ops           []Op
}

// Parse reads a trace. The header's operation count must match the number
// of operation lines, and every id must be below NumIDs. Blank lines are
// skipped.
func Parse(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() (string, bool) {
		for sc.Scan() {
			line++
			if s := strings.TrimSpace(sc.Text()); s != "" {
				return s, true
			}
		}
		return "", false
	}

	var header [4]int
	for i, name := range []string{"heap size", "id count", "op count", "weight"} {
		s, ok := next()
		if !ok {
			return nil, fmt.Errorf("%w: missing %s header", ErrSyntax, name)
		}
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: line %d: bad %s %q", ErrSyntax, line, name, s)
		}
		header[i] = v
	}

	tr := &Trace{SuggestedHeap: header[0], NumIDs: header[1], Weight: header[3]}
	numOps := header[2]
	if tr.NumIDs > MaxIDs {
		return nil, fmt.Errorf("%w: id count %d exceeds %d", ErrSyntax, tr.NumIDs, MaxIDs)
	}
	if numOps > MaxOps {
		return nil, fmt.Errorf("%w: op count %d exceeds %d", ErrSyntax, numOps, MaxOps)
	}
	tr.Ops = make([]Op, 0, min(numOps, opsPrealloc))

	for {
		s, ok := next()
		if !ok {
			break
		}
		op, err := parseOp(s, tr.NumIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, line, err)
		}
		if len(tr.Ops) == numOps {
			return nil, fmt.Errorf("%w: line %d: more than the %d ops in the header", ErrSyntax, line, numOps)
		}
		tr.Ops = append(tr.Ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tr.Ops) != numOps {
		return nil, fmt.Errorf("%w: header says %d ops, found %d", ErrSyntax, numOps, len(tr.Ops))
	}
	return tr, nil
}

func parseOp(s string, numIDs int) (Op, error) {
	f := strings.Fields(s)
	if len(f[0]) != 1 {
		return Op{}, fmt.Errorf("unknown op %q", f[0])
	}
	op := Op{Kind: Kind(f[0][0])}

	want := 3
	switch op.Kind {
	case Alloc, Realloc:
	case Free:
		want = 2
	default:
		return Op{}, fmt.Errorf("unknown op %q", f[0])
	}
	if len(f) != want {
		return Op{}, fmt.Errorf("%s takes %d fields, got %d", op.Kind, want-1, len(f)-1)
	}

	id, err := strconv.Atoi(f[1])
	if err != nil || id < 0 || id >= numIDs {
		return Op{}, fmt.Errorf("bad id %q (have %d ids)", f[1], numIDs)
	}
	op.ID = id
	if want == 3 {
		if op.Size, err = strconv.Atoi(f[2]); err != nil || op.Size < 0 {
			return Op{}, fmt.Errorf("bad size %q", f[2])
		}
	}
	return op, nil
}

// WriteTo writes tr in the text format Parse reads.
func (tr *Trace) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(format string, args ...any) {
		c, _ := fmt.Fprintf(bw, format, args...)
		n += int64(c)
	}
	write("%d\n%d\n%d\n%d\n", tr.SuggestedHeap, tr.NumIDs, len(tr.Ops), tr.Weight)
	for _, op := range tr.Ops {
		write("%s\n", op)
	}
	return n, bw.Flush()
}

// Random builds a well-formed trace of roughly n operations over numIDs ids:
// every id is allocated, possibly resized, and freed exactly once in a
// random interleaving. Sizes are drawn from [1, maxSize].
func Random(rng *rand.Rand, numIDs, maxSize int) *Trace {
	tr := &Trace{NumIDs: numIDs, Weight: 1}
	size := func() int { return 1 + rng.Intn(maxSize) }

	live := make([]int, 0, numIDs)
	nextID := 0
	for nextID < numIDs || len(live) > 0 {
		switch c := rng.Intn(10); {
		case nextID < numIDs && (c < 5 || len(live) == 0):
			tr.Ops = append(tr.Ops, Op{Kind: Alloc, ID: nextID, Size: size()})
			live = append(live, nextID)
			nextID++
		case c < 7 && len(live) > 0:
			id := live[rng.Intn(len(live))]
			tr.Ops = append(tr.Ops, Op{Kind: Realloc, ID: id, Size: size()})
		default:
			i := rng.Intn(len(live))
			tr.Ops = append(tr.Ops, Op{Kind: Free, ID: live[i]})
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}

	peak := 0
	for _, op := range tr.Ops {
		peak += op.Size
	}
	tr.SuggestedHeap = peak
	return tr
}
