package model

import (
	"fmt"
	"strings"
)

// Algorithm identifies a solver that produced or refined a solution.
type Algorithm string

const (
	AlgorithmLPT  Algorithm = "LPT"
	AlgorithmBF   Algorithm = "BF"
	AlgorithmFF   Algorithm = "FF"
	AlgorithmRR   Algorithm = "RR"
	AlgorithmRF   Algorithm = "RF"
	AlgorithmSwap Algorithm = "Swap"
)

// Algorithms lists every known algorithm in the order the CLI schedules them.
var Algorithms = []Algorithm{AlgorithmBF, AlgorithmFF, AlgorithmLPT, AlgorithmRF, AlgorithmRR, AlgorithmSwap}

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// Constructive reports whether the algorithm is a single-pass list heuristic.
func (a Algorithm) Constructive() bool {
	switch a {
	case AlgorithmLPT, AlgorithmBF, AlgorithmFF, AlgorithmRR, AlgorithmRF:
		return true
	}
	return false
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}
