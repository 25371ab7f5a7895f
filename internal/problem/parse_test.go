package problem

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/me/makespan/pkg/model"
)

func TestParse_Valid(t *testing.T) {
	in, err := Parse(strings.NewReader("p p_cmax 6 3\n4 9 6\n8 5 7\n0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.MachineCount != 3 {
		t.Errorf("MachineCount = %d, want 3", in.MachineCount)
	}
	if diff := cmp.Diff([]uint32{9, 8, 7, 6, 5, 4}, in.Jobs); diff != "" {
		t.Errorf("Jobs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 3, 5, 2, 4, 0}, in.Permutation); diff != "" {
		t.Errorf("Permutation mismatch (-want +got):\n%s", diff)
	}
	if in.KnownOptimum != 0 {
		t.Errorf("KnownOptimum = %d, want 0", in.KnownOptimum)
	}
}

func TestParse_KnownOptimum(t *testing.T) {
	in, err := Parse(strings.NewReader("p p_cmax 3 2 10 10 10 0 OPT 20"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.KnownOptimum != 20 {
		t.Errorf("KnownOptimum = %d, want 20", in.KnownOptimum)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad header", "q p_cmax 1 1 5 0"},
		{"missing terminator", "p p_cmax 2 1 5 6"},
		{"wrong terminator", "p p_cmax 2 1 5 6 7"},
		{"not a number", "p p_cmax 2 1 5 x 0"},
		{"zero machines", "p p_cmax 1 0 5 0"},
		{"zero job", "p p_cmax 2 1 5 0 0"},
		{"trailing garbage", "p p_cmax 1 1 5 0 foo"},
		{"negative", "p p_cmax 1 1 -5 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			var inErr *model.InputError
			if !errors.As(err, &inErr) {
				t.Errorf("error %v is not an InputError", err)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inst.txt")
	if err := os.WriteFile(path, []byte("p p_cmax 2 2 3 4 0"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if in.JobCount() != 2 {
		t.Errorf("JobCount = %d, want 2", in.JobCount())
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUnsort(t *testing.T) {
	in := NewSortedInput(2, []uint32{3, 7, 5})
	if diff := cmp.Diff([]uint32{7, 5, 3}, in.Jobs); diff != "" {
		t.Fatalf("Jobs mismatch (-want +got):\n%s", diff)
	}
	got := Unsort(in, []string{"seven", "five", "three"})
	if diff := cmp.Diff([]string{"three", "seven", "five"}, got); diff != "" {
		t.Errorf("Unsort mismatch (-want +got):\n%s", diff)
	}
}

func TestInput_Aggregates(t *testing.T) {
	in := Input{MachineCount: 3, Jobs: []uint32{9, 8, 7, 6, 5, 4}}
	if in.Sum() != 39 {
		t.Errorf("Sum = %d, want 39", in.Sum())
	}
	if in.Max() != 9 {
		t.Errorf("Max = %d, want 9", in.Max())
	}
	if err := in.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	bad := Input{MachineCount: 0, Jobs: []uint32{1}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero machines")
	}
}
