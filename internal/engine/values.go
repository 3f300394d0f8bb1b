package engine

import (
	"fmt"
	"math/rand"
	"strings"
)

// valueFor produces a plausible value for a column that has neither an
// original value list nor an anonymising set, guided by its name.
func valueFor(rng *rand.Rand, colName string, counter int) string {
	colLower := strings.ToLower(colName)

	switch {
	case strings.Contains(colLower, "email"):
		return email(rng, counter)
	case strings.Contains(colLower, "name") && !strings.Contains(colLower, "file"):
		return name(rng)
	case strings.Contains(colLower, "title"):
		return title(rng)
	case strings.Contains(colLower, "phone"):
		return phone(rng)
	case strings.Contains(colLower, "address"):
		return address(rng)
	case strings.Contains(colLower, "sex") || strings.Contains(colLower, "gender"):
		return pick(rng, []string{"F", "M"})
	case strings.Contains(colLower, "region") || strings.Contains(colLower, "area"):
		return pick(rng, []string{"North", "South", "East", "West"})
	}
	return word(rng)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func name(rng *rand.Rand) string {
	firstNames := []string{"John", "Jane", "Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
	lastNames := []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
	return pick(rng, firstNames) + " " + pick(rng, lastNames)
}

func email(rng *rand.Rand, counter int) string {
	domains := []string{"example.com", "test.com", "demo.com", "mail.com"}
	return fmt.Sprintf("user%d_%d@%s", counter, rng.Intn(100000), pick(rng, domains))
}

func title(rng *rand.Rand) string {
	return pick(rng, []string{"Dr", "Mr", "Mrs", "Ms", "Mx", "Prof"})
}

func word(rng *rand.Rand) string {
	return pick(rng, []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"})
}

func phone(rng *rand.Rand) string {
	return fmt.Sprintf("+1-%03d-%03d-%04d", rng.Intn(1000), rng.Intn(1000), rng.Intn(10000))
}

func address(rng *rand.Rand) string {
	return fmt.Sprintf("%d Main Street, City, State %05d", rng.Intn(9999)+1, rng.Intn(100000))
}

// categoryLabels strips the "value | probability" layout of an original
// value table down to the values, dropping its header row.
func categoryLabels(raw []string) []string {
	var labels []string
	for i, v := range raw {
		label := v
		if idx := strings.Index(v, "|"); idx >= 0 {
			label = v[:idx]
		}
		label = strings.TrimSpace(label)
		if i == 0 && strings.Contains(v, "probability_vector") {
			continue
		}
		if label == "" || label == "Missing data" {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}
