package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

// MinGroupMembers is the smallest number of dimensions a link accepts.
const MinGroupMembers = 2

// Link groups names into a new profile group and returns its 1-based id.
// Unknown names are registered first. A dimension already in a group is moved
// to the new one; its previous group keeps its id, or is dissolved when fewer
// than two members remain. Ids are never reused until ResetGroups.
func (r *Registry) Link(names []string) (int, error) {
	members := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return 0, apierrors.NewValidationError("members", "dimension names cannot be empty", names)
		}
		if _, dup := seen[n]; dup {
			return 0, apierrors.NewValidationError("members", fmt.Sprintf("dimension %q is listed twice", n), names)
		}
		seen[n] = struct{}{}
		members = append(members, n)
	}
	if len(members) < MinGroupMembers {
		return 0, apierrors.NewValidationError("members", "at least two dimensions required", names)
	}

	id := r.nextGroupID()
	for _, n := range members {
		r.GetOrCreate(n)
		r.leaveGroup(n)
		gid := id
		r.profiles[n].GroupID = &gid
	}
	r.groups = append(r.groups, domain.ProfileGroup{ID: id, Members: members})
	r.lastGroupID = id
	return id, nil
}

func (r *Registry) nextGroupID() int {
	next := r.lastGroupID
	for _, g := range r.groups {
		if g.ID > next {
			next = g.ID
		}
	}
	return next + 1
}

func (r *Registry) groupIndex(id int) int {
	for i, g := range r.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// leaveGroup removes name from its group. A group left with fewer than
// MinGroupMembers is dissolved and its remaining member ungrouped.
func (r *Registry) leaveGroup(name string) {
	p := r.profiles[name]
	if p.GroupID == nil {
		return
	}
	idx := r.groupIndex(*p.GroupID)
	p.GroupID = nil
	if idx < 0 {
		return
	}

	var kept []string
	for _, m := range r.groups[idx].Members {
		if m != name {
			kept = append(kept, m)
		}
	}
	if len(kept) >= MinGroupMembers {
		r.groups[idx].Members = kept
		return
	}
	for _, m := range kept {
		if other, ok := r.profiles[m]; ok {
			other.GroupID = nil
		}
	}
	r.groups = append(r.groups[:idx], r.groups[idx+1:]...)
}

// ResetGroups removes every group and clears all memberships.
func (r *Registry) ResetGroups() {
	r.groups = nil
	r.lastGroupID = 0
	for _, p := range r.profiles {
		p.GroupID = nil
	}
}

// Groups returns a copy of the groups in id order.
func (r *Registry) Groups() []domain.ProfileGroup {
	return cloneGroups(r.groups)
}

// Group returns the group with the given id.
func (r *Registry) Group(id int) (domain.ProfileGroup, error) {
	idx := r.groupIndex(id)
	if idx < 0 {
		return domain.ProfileGroup{}, apierrors.NewNotFoundError("group", strconv.Itoa(id))
	}
	g := r.groups[idx]
	return domain.ProfileGroup{ID: g.ID, Members: append([]string(nil), g.Members...)}, nil
}

// rebuildGroups replaces the groups from the GroupID of every profile,
// keeping their ids. Groups with fewer than two members are dissolved.
func (r *Registry) rebuildGroups() {
	byID := make(map[int][]string)
	var ids []int
	for _, name := range r.Names() {
		p := r.profiles[name]
		if p.GroupID == nil {
			continue
		}
		if _, ok := byID[*p.GroupID]; !ok {
			ids = append(ids, *p.GroupID)
		}
		byID[*p.GroupID] = append(byID[*p.GroupID], name)
	}
	sort.Ints(ids)

	r.groups = nil
	r.lastGroupID = 0
	for _, id := range ids {
		members := byID[id]
		if len(members) < MinGroupMembers {
			for _, m := range members {
				r.profiles[m].GroupID = nil
			}
			continue
		}
		r.groups = append(r.groups, domain.ProfileGroup{ID: id, Members: members})
		r.lastGroupID = id
	}
}

func cloneGroups(groups []domain.ProfileGroup) []domain.ProfileGroup {
	out := make([]domain.ProfileGroup, len(groups))
	for i, g := range groups {
		out[i] = domain.ProfileGroup{ID: g.ID, Members: append([]string(nil), g.Members...)}
	}
	return out
}
