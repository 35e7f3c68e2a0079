package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultSlotCount is the number of evenly spaced angular slots on a part.
const DefaultSlotCount = 12

var (
	slotPattern = regexp.MustCompile(`(?i)^ANG(\d+)$`)
	// A trailing ANG<k> token, separated from the base name by a space,
	// underscore or dash, or glued to it.
	slotSuffix = regexp.MustCompile(`(?i)[\s_-]*ANG(\d+)$`)
)

// ParseSlot validates a slot label and returns its 1-based index. The label
// is returned upper-cased.
func ParseSlot(slot string) (string, int, error) {
	m := slotPattern.FindStringSubmatch(strings.TrimSpace(slot))
	if m == nil {
		return "", 0, fmt.Errorf("slot %q must look like ANG<k>", slot)
	}
	k, err := strconv.Atoi(m[1])
	if err != nil || k < 1 {
		return "", 0, fmt.Errorf("slot %q must have an index of at least 1", slot)
	}
	return "ANG" + strconv.Itoa(k), k, nil
}

// SlotAngle places slot k of slotCount evenly spaced slots at
// (k-1)*360/slotCount degrees, wrapping indices beyond slotCount.
func SlotAngle(slot string, slotCount int) (float64, error) {
	_, k, err := ParseSlot(slot)
	if err != nil {
		return 0, err
	}
	if slotCount <= 0 {
		slotCount = DefaultSlotCount
	}
	return float64((k-1)%slotCount) * 360 / float64(slotCount), nil
}

// BaseName strips a trailing ANG<k> token from a dimension name.
func BaseName(name string) string {
	name = strings.TrimSpace(name)
	loc := slotSuffix.FindStringIndex(name)
	if loc == nil {
		return name
	}
	return strings.TrimSpace(name[:loc[0]])
}

func slotOf(name string) (int, bool) {
	m := slotSuffix.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, false
	}
	k, err := strconv.Atoi(m[1])
	if err != nil || k < 1 {
		return 0, false
	}
	return k, true
}

// AvailableSlots lists the slots offered for name: one per distinct ANG<k>
// suffix among the names in allNames that share its base name, sorted by k.
// The result depends on the batch the names come from.
func AvailableSlots(name string, allNames []string) []string {
	base := strings.ToLower(BaseName(name))

	seen := make(map[int]struct{})
	var indices []int
	for _, other := range allNames {
		k, ok := slotOf(other)
		if !ok || strings.ToLower(BaseName(other)) != base {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		indices = append(indices, k)
	}
	sort.Ints(indices)

	slots := make([]string, len(indices))
	for i, k := range indices {
		slots[i] = "ANG" + strconv.Itoa(k)
	}
	return slots
}
