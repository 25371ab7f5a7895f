package problem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/me/makespan/pkg/model"
)

// ReadFile parses the instance stored at path.
func ReadFile(path string) (*SortedInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	in, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

// Parse reads an instance in the format
//
//	p p_cmax <job count> <machine count> <job_1> ... <job_n> 0 [OPT <value>]
//
// Tokens are whitespace separated. The optional OPT suffix carries a known
// optimal makespan.
func Parse(r io.Reader) (*SortedInput, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	var tokens []string
	for sc.Scan() {
		tokens = append(tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(tokens) == 0 {
		return nil, &model.InputError{Token: -1, Reason: "empty input"}
	}
	if len(tokens) < 4 || tokens[0] != "p" || tokens[1] != "p_cmax" {
		return nil, &model.InputError{Token: 0, Reason: `expected header "p p_cmax <jobs> <machines>"`}
	}

	jobCount, err := parseUint(tokens, 2)
	if err != nil {
		return nil, err
	}
	machineCount, err := parseUint(tokens, 3)
	if err != nil {
		return nil, err
	}
	if machineCount == 0 {
		return nil, &model.InputError{Token: 3, Reason: "machine count must be > 0"}
	}
	if jobCount == 0 {
		return nil, &model.InputError{Token: 2, Reason: "job count must be > 0"}
	}

	end := 4 + int(jobCount)
	if len(tokens) <= end {
		return nil, &model.InputError{Token: len(tokens), Reason: fmt.Sprintf("expected %d jobs followed by 0", jobCount)}
	}

	jobs := make([]uint32, jobCount)
	for i := range jobs {
		v, err := parseUint(tokens, 4+i)
		if err != nil {
			return nil, err
		}
		if v == 0 {
			return nil, &model.InputError{Token: 4 + i, Reason: "job length must be > 0"}
		}
		jobs[i] = v
	}
	if tokens[end] != "0" {
		return nil, &model.InputError{Token: end, Reason: fmt.Sprintf("expected terminating 0 after %d jobs, got %q", jobCount, tokens[end])}
	}

	var opt uint32
	rest := tokens[end+1:]
	switch {
	case len(rest) == 0:
	case len(rest) == 2 && rest[0] == "OPT":
		opt, err = parseUint(tokens, end+2)
		if err != nil {
			return nil, err
		}
	default:
		return nil, &model.InputError{Token: end + 1, Reason: "unexpected trailing tokens"}
	}

	sorted := NewSortedInput(int(machineCount), jobs)
	sorted.KnownOptimum = opt
	return sorted, nil
}

func parseUint(tokens []string, i int) (uint32, error) {
	v, err := strconv.ParseUint(tokens[i], 10, 32)
	if err != nil {
		return 0, &model.InputError{Token: i, Reason: fmt.Sprintf("expected unsigned integer, got %q", tokens[i])}
	}
	return uint32(v), nil
}
