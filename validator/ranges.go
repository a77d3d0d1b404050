package validator

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRanges parses a list of indices and inclusive ranges like "0-15" into
// the list of included indices. Duplicates are only listed once.
func ParseRanges(validatorsStrings []string) ([]uint32, error) {
	var validatorIndices []uint32
	seen := map[uint32]struct{}{}

	add := func(i uint32) {
		if _, found := seen[i]; found {
			return
		}
		seen[i] = struct{}{}
		validatorIndices = append(validatorIndices, i)
	}

	for _, s := range validatorsStrings {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		if !strings.ContainsRune(s, '-') {
			i, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid validator index %q", s)
			}
			add(uint32(i))
			continue
		}

		parts := strings.SplitN(s, "-", 2)
		first, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid validator range %q", s)
		}
		second, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil || second < first {
			return nil, fmt.Errorf("invalid validator range %q", s)
		}
		for i := first; i <= second; i++ {
			add(uint32(i))
		}
	}

	return validatorIndices, nil
}
