package instruction

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Table maps phases to their ordered instructions.
type Table struct {
	buckets map[int][]Instruction
}

// NewTable returns a table holding the empty bucket 0.
func NewTable() *Table {
	return &Table{buckets: map[int][]Instruction{0: nil}}
}

// Ensure creates the bucket for phase if it does not exist.
func (t *Table) Ensure(phase int) {
	if _, ok := t.buckets[phase]; !ok {
		t.buckets[phase] = nil
	}
}

// Append adds instructions to the end of a bucket, creating it if needed.
func (t *Table) Append(phase int, ins ...Instruction) {
	t.buckets[phase] = append(t.buckets[phase], ins...)
}

// Bucket returns the instructions of phase.
func (t *Table) Bucket(phase int) ([]Instruction, bool) {
	b, ok := t.buckets[phase]
	return b, ok
}

// Phases returns the defined phases in ascending order.
func (t *Table) Phases() []int {
	phases := make([]int, 0, len(t.buckets))
	for p := range t.buckets {
		phases = append(phases, p)
	}
	sort.Ints(phases)
	return phases
}

// Len is the total number of top-level instructions.
func (t *Table) Len() int {
	n := 0
	for _, b := range t.buckets {
		n += len(b)
	}
	return n
}

// Dump writes a stable, human readable listing of the table.
func (t *Table) Dump(w io.Writer) error {
	for _, p := range t.Phases() {
		if _, err := fmt.Fprintf(w, "phase %d\n", p); err != nil {
			return err
		}
		for i, in := range t.buckets[p] {
			if err := dumpInstruction(w, i, in, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpInstruction(w io.Writer, i int, in Instruction, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s%d: %s\n", indent, i, in); err != nil {
		return err
	}
	c, ok := in.(*Conditional)
	if !ok {
		return nil
	}
	for _, br := range c.Branches {
		if _, err := fmt.Fprintf(w, "%s  when %s\n", indent, br.Cond.String()); err != nil {
			return err
		}
		for j, nested := range br.Body {
			if err := dumpInstruction(w, j, nested, depth+2); err != nil {
				return err
			}
		}
	}
	return nil
}
