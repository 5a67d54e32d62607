package benchmark

import (
	"fmt"
	"strings"
)

type Category string

const (
	Disk   Category = "disk"
	CPU    Category = "cpu"
	Memory Category = "memory"
	GPU    Category = "gpu"
)

// AllCategories lists every category in execution order.
var AllCategories = []Category{Disk, CPU, Memory, GPU}

func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disk":
		return Disk, nil
	case "cpu":
		return CPU, nil
	case "memory", "mem":
		return Memory, nil
	case "gpu":
		return GPU, nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// ParseCategories parses a list of category names. Duplicates are dropped and the result is in execution order.
func ParseCategories(names []string) ([]Category, error) {
	seen := map[Category]bool{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		seen[c] = true
	}
	out := []Category{}
	for _, c := range AllCategories {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (c Category) index() int {
	for i, x := range AllCategories {
		if x == c {
			return i
		}
	}
	return len(AllCategories)
}
