package solution

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/pkg/model"
)

type recordingReporter struct {
	calls []uint32
}

func (r *recordingReporter) UpdateUpperBound(candidate uint32, _ *Solution) {
	r.calls = append(r.calls, candidate)
}

func TestNew_ReportsUpperBound(t *testing.T) {
	rep := &recordingReporter{}
	mj := buildMachines(t, 2, map[int][]int{0: {0, 3}, 1: {1, 2}})
	s := New(model.AlgorithmLPT, "", mj, rep)

	if !s.Satisfiable() {
		t.Fatal("expected satisfiable")
	}
	if s.CMax() != 15 {
		t.Errorf("CMax = %d, want 15", s.CMax())
	}
	if diff := cmp.Diff([]uint32{15}, rep.calls); diff != "" {
		t.Errorf("reporter calls mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsatisfiable(t *testing.T) {
	s := Unsatisfiable(model.AlgorithmFF, "")
	if s.Satisfiable() {
		t.Error("expected unsatisfiable")
	}
	if s.CMax() != 0 || s.Machines() != nil {
		t.Errorf("unsatisfiable solution carries data: %d %v", s.CMax(), s.Machines())
	}
}

func TestSolution_EqualIgnoresProvenance(t *testing.T) {
	mj := buildMachines(t, 2, map[int][]int{0: {0, 3}, 1: {1, 2}})
	a := New(model.AlgorithmLPT, "", mj, nil)
	b := New(model.AlgorithmBF, "x", mj.Clone(), nil)
	b.AddAlgorithm(model.AlgorithmSwap)
	if !a.Equal(b) {
		t.Error("solutions with same assignment should be equal")
	}
	if a.Equal(Unsatisfiable(model.AlgorithmLPT, "")) {
		t.Error("satisfiable must not equal unsatisfiable")
	}
}

func TestSolution_ProvenanceAndConfig(t *testing.T) {
	s := New(model.AlgorithmRF, "5", buildMachines(t, 1, map[int][]int{0: {0}}), nil)
	c := s.Clone()
	c.AddAlgorithm(model.AlgorithmSwap)
	c.AddConfig("best-swap,improvement")

	if got := s.AlgorithmsString(); got != "RF" {
		t.Errorf("original AlgorithmsString = %q, want RF", got)
	}
	if got := c.AlgorithmsString(); got != "RF_Swap" {
		t.Errorf("AlgorithmsString = %q, want RF_Swap", got)
	}
	if got := c.Config(); got != "5\nbest-swap,improvement" {
		t.Errorf("Config = %q", got)
	}

	empty := New(model.AlgorithmLPT, "", buildMachines(t, 1, map[int][]int{0: {0}}), nil)
	empty.AddConfig("a")
	if empty.Config() != "a" {
		t.Errorf("Config = %q, want a", empty.Config())
	}
}

func TestSolution_ExtendCollapsesRepeats(t *testing.T) {
	s := New(model.AlgorithmLPT, "", buildMachines(t, 1, map[int][]int{0: {0}}), nil)
	for range 5 {
		s.Extend(model.AlgorithmSwap, "random-swap-20,all")
	}
	if got := s.AlgorithmsString(); got != "LPT_Swap" {
		t.Errorf("AlgorithmsString = %q, want LPT_Swap", got)
	}
	if got := s.Config(); got != "random-swap-20,all" {
		t.Errorf("Config = %q", got)
	}

	s.Extend(model.AlgorithmSwap, "best-swap,improvement")
	s.Extend(model.AlgorithmSwap, "best-swap,improvement")
	if got := s.AlgorithmsString(); got != "LPT_Swap_Swap" {
		t.Errorf("AlgorithmsString = %q, want LPT_Swap_Swap", got)
	}
	if got := s.Config(); got != "random-swap-20,all\nbest-swap,improvement" {
		t.Errorf("Config = %q", got)
	}
}

func TestSolution_Swap(t *testing.T) {
	s := New(model.AlgorithmLPT, "", buildMachines(t, 3, map[int][]int{0: {0, 3}, 1: {1, 4}, 2: {2, 5}}), nil)
	s.Swap(Move{M1: 0, J1: 1, M2: 2, J2: 1}, testJobs)
	if s.CMax() != 13 {
		t.Errorf("CMax = %d, want 13", s.CMax())
	}
}

func sortedFixture(t *testing.T) (*problem.SortedInput, *Solution) {
	t.Helper()
	in := problem.NewSortedInput(3, []uint32{4, 9, 6, 8, 5, 7})
	mj := Empty(3)
	for m, jobs := range [][]int{{0, 5}, {1, 4}, {2, 3}} {
		for _, j := range jobs {
			mj.Assign(j, m, in.Jobs[j])
		}
	}
	return in, New(model.AlgorithmLPT, "", mj, nil)
}

func TestFormat(t *testing.T) {
	in, s := sortedFixture(t)
	want := "LPT\nSCHEDULING_SOLUTION 13 0 9 0 0 2 7 1 0 1 8 2 0 0\nconfig:\n\n"
	if got := s.Format(in); got != want {
		t.Errorf("Format =\n%q\nwant\n%q", got, want)
	}

	u := Unsatisfiable(model.AlgorithmRR, "")
	if got := u.Format(in); got != "RR\nSCHEDULING_SOLUTION UNSATISFIABLE!\n\n\n" {
		t.Errorf("unsatisfiable Format = %q", got)
	}
}

func TestParseTextAndVerify(t *testing.T) {
	in, s := sortedFixture(t)
	s.AddAlgorithm(model.AlgorithmSwap)
	s.AddConfig("best-swap")
	text := s.Format(in) + Unsatisfiable(model.AlgorithmFF, "").Format(in)

	parsed, err := ParseText(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("parsed %d solutions, want 2", len(parsed))
	}
	if parsed[0].Algorithms != "LPT_Swap" || parsed[0].CMax != 13 {
		t.Errorf("parsed[0] = %+v", parsed[0])
	}
	if !parsed[1].Unsatisfiable {
		t.Error("parsed[1] should be unsatisfiable")
	}

	original := []uint32{4, 9, 6, 8, 5, 7}
	for i, p := range parsed {
		if err := Verify(p, 3, original); err != nil {
			t.Errorf("Verify(%d): %v", i, err)
		}
	}
}

func TestVerify_Errors(t *testing.T) {
	jobs := []uint32{4, 9}
	tests := []struct {
		name string
		p    Parsed
	}{
		{"missing job", Parsed{CMax: 9, Schedule: Schedule{{0, 0}}}},
		{"machine out of range", Parsed{CMax: 9, Schedule: Schedule{{0, 0}, {5, 0}}}},
		{"gap", Parsed{CMax: 14, Schedule: Schedule{{0, 0}, {0, 5}}}},
		{"overlap", Parsed{CMax: 12, Schedule: Schedule{{0, 0}, {0, 3}}}},
		{"wrong cmax", Parsed{CMax: 10, Schedule: Schedule{{0, 0}, {1, 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(tt.p, 2, jobs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseText_Malformed(t *testing.T) {
	for _, text := range []string{
		"LPT\nSCHEDULING_SOLUTION 5 0 0\n",
		"LPT\nSCHEDULING_SOLUTION 5 0 x 0\n",
	} {
		if _, err := ParseText(strings.NewReader(text)); err == nil {
			t.Errorf("ParseText(%q): expected error", text)
		}
	}
}
