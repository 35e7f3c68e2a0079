package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

// ImportMode selects how an imported document combines with the registry.
type ImportMode string

const (
	// ImportMerge fills fields the operator has not edited and adds unknown
	// dimensions.
	ImportMerge ImportMode = "merge"
	// ImportReplace discards the registry and loads the document.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode reads an import mode, defaulting to merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ImportMerge, nil
	case ImportMerge, ImportReplace:
		return m, nil
	default:
		return "", apierrors.NewValidationError("mode", fmt.Sprintf("unknown import mode %q", s), s)
	}
}

// ImportResult summarises an import.
type ImportResult struct {
	Mode    ImportMode `json:"mode"`
	Created []string   `json:"created"`
	Updated []string   `json:"updated"`
	Groups  int        `json:"groups"`
}

// flexNumber accepts a JSON number, a numeric string, an empty string or
// null. Documents edited in spreadsheets often quote numbers.
type flexNumber struct {
	value *float64
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		n.value = nil
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			n.value = nil
			return nil
		}
	} else {
		s = string(b)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	n.value = &v
	return nil
}

// flexTags accepts a list of tags or a single comma-joined string.
type flexTags []string

func (t *flexTags) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

type importEntry struct {
	Type     string     `json:"Type_Cote"`
	GPSTags  flexTags   `json:"Tolérances_GPS"`
	Group    flexNumber `json:"Groupe_Profil"`
	Angular  string     `json:"Position_Angulaire"`
	Degrees  flexNumber `json:"Angle_Degres"`
	Position flexNumber `json:"Hauteur"`
}

// importedProfile is a validated document entry. Fields whose set flag is
// false were absent or left at their default in the document.
type importedProfile struct {
	profile domain.DimensionProfile
	set     domain.Overrides
	group   *int
}

// ImportJSON loads a registry document. Every entry is validated before the
// registry changes; on error the registry is left as it was. Groups are
// rebuilt from the Groupe_Profil values.
func (r *Registry) ImportJSON(rd io.Reader, mode ImportMode) (ImportResult, error) {
	var raw map[string]importEntry
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&raw); err != nil {
		return ImportResult{}, apierrors.NewValidationError("document", fmt.Sprintf("invalid registry document: %v", err), nil)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	imported := make(map[string]importedProfile, len(raw))
	for _, name := range names {
		ip, err := validateEntry(name, raw[name])
		if err != nil {
			return ImportResult{}, err
		}
		key := ip.profile.Name
		if _, dup := imported[key]; dup {
			return ImportResult{}, apierrors.NewValidationError(name, "dimension listed twice after trimming", name)
		}
		imported[key] = ip
	}

	var (
		next   *Registry
		result ImportResult
	)
	switch mode {
	case ImportReplace:
		next, result = replaceFrom(imported)
	case ImportMerge:
		next, result = r.mergeFrom(imported)
	default:
		return ImportResult{}, apierrors.NewValidationError("mode", fmt.Sprintf("unknown import mode %q", mode), string(mode))
	}

	r.profiles, r.groups, r.lastGroupID = next.profiles, next.groups, next.lastGroupID
	result.Mode = mode
	result.Groups = len(r.groups)
	return result, nil
}

func validateEntry(name string, e importEntry) (importedProfile, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return importedProfile{}, apierrors.NewValidationError("Nom_Cote", "dimension name cannot be empty", name)
	}
	field := func(f string) string { return trimmed + "." + f }

	ip := importedProfile{profile: *newProfile(trimmed)}

	if t := strings.TrimSpace(e.Type); t != "" {
		ft, err := domain.ParseFunctionalType(t)
		if err != nil {
			return importedProfile{}, apierrors.NewValidationError(field("Type_Cote"), err.Error(), t)
		}
		ip.profile.Type = ft
		ip.set.Type = ft != Classify(trimmed)
	}

	tags, err := NormalizeTags(e.GPSTags)
	if err != nil {
		return importedProfile{}, apierrors.NewValidationError(field("Tolérances_GPS"), err.Error(), []string(e.GPSTags))
	}
	ip.profile.GPSTags = tags
	ip.set.GPSTags = len(tags) > 0

	// A slot label takes precedence over a free angle when both are present.
	if slot := strings.TrimSpace(e.Angular); slot != "" && slot != domain.UnspecifiedPosition {
		label, _, err := ParseSlot(slot)
		if err != nil {
			return importedProfile{}, apierrors.NewValidationError(field("Position_Angulaire"), err.Error(), slot)
		}
		ip.profile.Angular = domain.AngularPosition{Slot: label}
		ip.set.Angular = true
	} else if e.Degrees.value != nil {
		if err := validateDegrees(*e.Degrees.value); err != nil {
			return importedProfile{}, apierrors.NewValidationError(field("Angle_Degres"), "angle must be between 0 and 360 degrees", *e.Degrees.value)
		}
		deg := *e.Degrees.value
		ip.profile.Angular = domain.AngularPosition{Degrees: &deg}
		ip.set.Angular = true
	}

	if e.Position.value != nil {
		if !finite(*e.Position.value) {
			return importedProfile{}, apierrors.NewValidationError(field("Hauteur"), "position must be a finite number", nil)
		}
		pos := *e.Position.value
		ip.profile.Position = &pos
		ip.set.Position = true
	}

	if e.Group.value != nil {
		g := *e.Group.value
		if g < 1 || g != float64(int(g)) {
			return importedProfile{}, apierrors.NewValidationError(field("Groupe_Profil"), "group id must be a positive integer", g)
		}
		id := int(g)
		ip.group = &id
	}

	ip.profile.Overrides = ip.set
	return ip, nil
}

func replaceFrom(imported map[string]importedProfile) (*Registry, ImportResult) {
	next := New()
	var result ImportResult
	for name, ip := range imported {
		p := ip.profile.Clone()
		if ip.group != nil {
			id := *ip.group
			p.GroupID = &id
		}
		next.profiles[name] = &p
		result.Created = append(result.Created, name)
	}
	sort.Strings(result.Created)
	next.rebuildGroups()
	return next, result
}

func (r *Registry) mergeFrom(imported map[string]importedProfile) (*Registry, ImportResult) {
	next := r.Clone()
	var result ImportResult

	names := make([]string, 0, len(imported))
	for name := range imported {
		names = append(names, name)
	}
	sort.Strings(names)

	docGroups := make(map[int][]string)
	for _, name := range names {
		ip := imported[name]
		if ip.group != nil {
			docGroups[*ip.group] = append(docGroups[*ip.group], name)
		}

		p, ok := next.profiles[name]
		if !ok {
			c := ip.profile.Clone()
			next.profiles[name] = &c
			result.Created = append(result.Created, name)
			continue
		}

		changed := false
		if ip.set.Type && !p.Overrides.Type && p.Type != ip.profile.Type {
			p.Type = ip.profile.Type
			p.Overrides.Type = true
			changed = true
		}
		if ip.set.GPSTags && !p.Overrides.GPSTags {
			p.GPSTags = append([]string(nil), ip.profile.GPSTags...)
			p.Overrides.GPSTags = true
			changed = true
		}
		if ip.set.Angular && !p.Overrides.Angular {
			c := ip.profile.Clone()
			p.Angular = c.Angular
			p.Overrides.Angular = true
			changed = true
		}
		if ip.set.Position && !p.Overrides.Position {
			pos := *ip.profile.Position
			p.Position = &pos
			p.Overrides.Position = true
			changed = true
		}
		if changed {
			result.Updated = append(result.Updated, name)
		}
	}

	// Document groups are appended after the existing ones, restricted to
	// members that are not grouped yet.
	ids := make([]int, 0, len(docGroups))
	for id := range docGroups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		var free []string
		for _, name := range docGroups[id] {
			if next.profiles[name].GroupID == nil {
				free = append(free, name)
			}
		}
		if len(free) < MinGroupMembers {
			continue
		}
		gid := next.nextGroupID()
		for _, name := range free {
			g := gid
			next.profiles[name].GroupID = &g
		}
		next.groups = append(next.groups, domain.ProfileGroup{ID: gid, Members: free})
		next.lastGroupID = gid
	}

	return next, result
}
