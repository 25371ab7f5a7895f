package solution

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/me/makespan/internal/problem"
)

const (
	solutionTag   = "SCHEDULING_SOLUTION"
	unsatisfiable = "UNSATISFIABLE!"
	configPrefix  = "config:"
)

// Format renders s in the textual result format:
//
//	<alg1>_<alg2>
//	SCHEDULING_SOLUTION <c_max> <machine> <start> ... 0
//	config:<descriptor>
//
// followed by a blank line. Pairs are listed in original job order.
func (s *Solution) Format(in *problem.SortedInput) string {
	var b strings.Builder
	if !s.satisfiable {
		fmt.Fprintf(&b, "%s\n%s %s\n%s\n\n", s.algorithms[0], solutionTag, unsatisfiable, s.config)
		return b.String()
	}
	fmt.Fprintf(&b, "%s\n%s %d ", s.AlgorithmsString(), solutionTag, s.CMax())
	for _, p := range s.Unsorted(in) {
		fmt.Fprintf(&b, "%d %d ", p[0], p[1])
	}
	fmt.Fprintf(&b, "0\n%s%s\n\n", configPrefix, s.config)
	return b.String()
}

// Parsed is a solution read back from its textual format.
type Parsed struct {
	Algorithms    string
	Unsatisfiable bool
	CMax          uint32
	Schedule      Schedule
}

// ParseText reads every solution block from r.
func ParseText(r io.Reader) ([]Parsed, error) {
	var (
		out  []Parsed
		prev string
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, solutionTag) {
			prev = text
			continue
		}
		p, err := parseSolutionLine(strings.Fields(text)[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p.Algorithms = prev
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	return out, nil
}

func parseSolutionLine(fields []string) (Parsed, error) {
	if len(fields) == 1 && fields[0] == unsatisfiable {
		return Parsed{Unsatisfiable: true}, nil
	}
	// c_max, pairs, terminating 0
	if len(fields) < 2 || len(fields)%2 != 0 {
		return Parsed{}, fmt.Errorf("malformed %s line with %d fields", solutionTag, len(fields))
	}
	if fields[len(fields)-1] != "0" {
		return Parsed{}, fmt.Errorf("missing terminating 0")
	}
	vals := make([]uint32, len(fields)-1)
	for i, f := range fields[:len(fields)-1] {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return Parsed{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i] = uint32(v)
	}
	p := Parsed{CMax: vals[0]}
	for i := 1; i+1 < len(vals); i += 2 {
		p.Schedule = append(p.Schedule, [2]uint32{vals[i], vals[i+1]})
	}
	return p, nil
}
