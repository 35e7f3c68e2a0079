package registry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

// Registry maps dimension names to their profiles and holds the profile
// groups linking them.
type Registry struct {
	profiles map[string]*domain.DimensionProfile
	groups   []domain.ProfileGroup // ascending id

	// highest group id handed out since the last reset
	lastGroupID int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{profiles: make(map[string]*domain.DimensionProfile)}
}

func newProfile(name string) *domain.DimensionProfile {
	return &domain.DimensionProfile{
		Name:    name,
		Type:    Classify(name),
		GPSTags: []string{},
	}
}

// Len returns the number of profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Has reports whether name has a profile.
func (r *Registry) Has(name string) bool {
	_, ok := r.profiles[name]
	return ok
}

// GetOrCreate returns the profile of name, creating it with heuristic
// defaults when it does not exist yet.
func (r *Registry) GetOrCreate(name string) domain.DimensionProfile {
	p, ok := r.profiles[name]
	if !ok {
		p = newProfile(name)
		r.profiles[name] = p
	}
	return p.Clone()
}

// Get returns the profile of name.
func (r *Registry) Get(name string) (domain.DimensionProfile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return domain.DimensionProfile{}, apierrors.NewNotFoundError("dimension", name)
	}
	return p.Clone(), nil
}

// EnsureAll creates profiles for the names not registered yet and returns
// them in input order. Existing profiles are left untouched.
func (r *Registry) EnsureAll(names []string) []string {
	var created []string
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := r.profiles[name]; ok {
			continue
		}
		r.profiles[name] = newProfile(name)
		created = append(created, name)
	}
	return created
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of every profile, sorted by name.
func (r *Registry) Snapshot() []domain.DimensionProfile {
	out := make([]domain.DimensionProfile, 0, len(r.profiles))
	for _, name := range r.Names() {
		out = append(out, r.profiles[name].Clone())
	}
	return out
}

// Profiles returns a deep copy of the profiles keyed by name.
func (r *Registry) Profiles() map[string]domain.DimensionProfile {
	out := make(map[string]domain.DimensionProfile, len(r.profiles))
	for name, p := range r.profiles {
		out[name] = p.Clone()
	}
	return out
}

// Clone returns an independent copy of the registry and its groups.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		profiles: make(map[string]*domain.DimensionProfile, len(r.profiles)),
		groups:   cloneGroups(r.groups),

		lastGroupID: r.lastGroupID,
	}
	for name, p := range r.profiles {
		c := p.Clone()
		out.profiles[name] = &c
	}
	return out
}

// ProfileUpdate carries the profile fields an operator edits. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	Type          *domain.FunctionalType
	GPSTags       *[]string
	Position      *float64
	ClearPosition bool
}

// Update applies u to the profile of name and marks the edited fields as
// overridden. Nothing changes when any field is invalid.
func (r *Registry) Update(name string, u ProfileUpdate) (domain.DimensionProfile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return domain.DimensionProfile{}, apierrors.NewNotFoundError("dimension", name)
	}

	if u.Type != nil && !u.Type.Valid() {
		return domain.DimensionProfile{}, apierrors.NewValidationError("functional_type",
			fmt.Sprintf("unknown functional type %q", *u.Type), string(*u.Type))
	}

	var tags []string
	if u.GPSTags != nil {
		var err error
		if tags, err = NormalizeTags(*u.GPSTags); err != nil {
			return domain.DimensionProfile{}, apierrors.NewValidationError("gps_tags", err.Error(), *u.GPSTags)
		}
	}

	if u.Position != nil && !finite(*u.Position) {
		return domain.DimensionProfile{}, apierrors.NewValidationError("position", "position must be a finite number", nil)
	}
	if u.Position != nil && u.ClearPosition {
		return domain.DimensionProfile{}, apierrors.NewValidationError("position", "position cannot be set and cleared at once", nil)
	}

	if u.Type != nil {
		p.Type = *u.Type
		p.Overrides.Type = true
	}
	if u.GPSTags != nil {
		p.GPSTags = tags
		p.Overrides.GPSTags = true
	}
	if u.Position != nil {
		pos := *u.Position
		p.Position = &pos
		p.Overrides.Position = true
	}
	if u.ClearPosition {
		p.Position = nil
		p.Overrides.Position = true
	}
	return p.Clone(), nil
}

// AngularInput selects an angular slot, a free angle, or clears both.
type AngularInput struct {
	Slot    string
	Degrees *float64
	Clear   bool
}

// SetAngularPosition stores a slot label or a free angle in [0, 360] on the
// profile of name. Setting one representation clears the other.
func (r *Registry) SetAngularPosition(name string, in AngularInput) (domain.DimensionProfile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return domain.DimensionProfile{}, apierrors.NewNotFoundError("dimension", name)
	}

	angular, err := resolveAngular(in)
	if err != nil {
		return domain.DimensionProfile{}, err
	}

	p.Angular = angular
	p.Overrides.Angular = true
	return p.Clone(), nil
}

func resolveAngular(in AngularInput) (domain.AngularPosition, error) {
	slot := strings.TrimSpace(in.Slot)
	set := 0
	if slot != "" {
		set++
	}
	if in.Degrees != nil {
		set++
	}

	switch {
	case in.Clear && set > 0:
		return domain.AngularPosition{}, apierrors.NewValidationError("angular_position", "clear cannot be combined with a slot or an angle", nil)
	case in.Clear:
		return domain.AngularPosition{}, nil
	case set != 1:
		return domain.AngularPosition{}, apierrors.NewValidationError("angular_position", "exactly one of slot or degrees is required", nil)
	case slot != "":
		label, _, err := ParseSlot(slot)
		if err != nil {
			return domain.AngularPosition{}, apierrors.NewValidationError("slot", err.Error(), in.Slot)
		}
		return domain.AngularPosition{Slot: label}, nil
	default:
		if err := validateDegrees(*in.Degrees); err != nil {
			return domain.AngularPosition{}, err
		}
		deg := *in.Degrees
		return domain.AngularPosition{Degrees: &deg}, nil
	}
}

func validateDegrees(deg float64) error {
	if !finite(deg) || deg < 0 || deg > 360 {
		return apierrors.NewValidationError("degrees", "angle must be between 0 and 360 degrees", deg)
	}
	return nil
}

// Angle resolves the angle of a profile: its free angle, else the angle of
// its slot. ok is false when the profile has no angular position.
func Angle(p domain.DimensionProfile, slotCount int) (float64, bool) {
	if p.Angular.Degrees != nil {
		return *p.Angular.Degrees, true
	}
	if p.Angular.Slot != "" {
		if a, err := SlotAngle(p.Angular.Slot, slotCount); err == nil {
			return a, true
		}
	}
	return 0, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
