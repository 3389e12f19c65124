package schema

import "sort"

// PersonaProfile is a named user archetype and its base factor weights.
type PersonaProfile struct {
	Name        Persona   `json:"name"`
	Description string    `json:"description"`
	Weights     WeightMap `json:"weights"`
}

// PersonaSet is an immutable lookup of persona profiles. Build it once at
// startup and pass it to the engine; lookups hand out copies.
type PersonaSet struct {
	profiles map[Persona]PersonaProfile
}

// NewPersonaSet builds a set from the given profiles. Later duplicates win.
func NewPersonaSet(profiles ...PersonaProfile) PersonaSet {
	set := PersonaSet{profiles: make(map[Persona]PersonaProfile, len(profiles))}
	for _, p := range profiles {
		p.Weights = p.Weights.Clone()
		set.profiles[p.Name] = p
	}
	return set
}

// Get returns a copy of the named profile.
func (s PersonaSet) Get(name Persona) (PersonaProfile, bool) {
	p, ok := s.profiles[name]
	if !ok {
		return PersonaProfile{}, false
	}
	p.Weights = p.Weights.Clone()
	return p, true
}

// Names returns the persona names in sorted order.
func (s PersonaSet) Names() []Persona {
	names := make([]Persona, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Profiles returns copies of every profile, sorted by name.
func (s PersonaSet) Profiles() []PersonaProfile {
	out := make([]PersonaProfile, 0, len(s.profiles))
	for _, name := range s.Names() {
		p, _ := s.Get(name)
		out = append(out, p)
	}
	return out
}

// WithOverrides returns a new set where the given weights replace the base
// weights of existing personas or define new ones. The receiver is untouched.
func (s PersonaSet) WithOverrides(overrides map[Persona]WeightMap) PersonaSet {
	profiles := s.Profiles()
	index := make(map[Persona]int, len(profiles))
	for i, p := range profiles {
		index[p.Name] = i
	}
	for _, name := range sortedPersonaKeys(overrides) {
		weights := overrides[name]
		if i, ok := index[name]; ok {
			profiles[i].Weights = weights.Clone()
			continue
		}
		profiles = append(profiles, PersonaProfile{Name: name, Description: "Custom persona", Weights: weights.Clone()})
	}
	return NewPersonaSet(profiles...)
}

func sortedPersonaKeys(m map[Persona]WeightMap) []Persona {
	keys := make([]Persona, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DefaultPersonas returns the built-in persona table.
func DefaultPersonas() PersonaSet {
	return NewPersonaSet(
		PersonaProfile{
			Name:        StudentPersona,
			Description: "Budget-conscious renter who values transport links and things to do",
			Weights: WeightMap{
				Affordability:     35,
				Commute:           25,
				Safety:            15,
				Amenities:         20,
				InvestmentQuality: 5,
			},
		},
		PersonaProfile{
			Name:        ParentPersona,
			Description: "Family buyer focused on schools and a safe neighbourhood",
			Weights: WeightMap{
				Affordability: 20,
				Schools:       30,
				Safety:        25,
				Commute:       15,
				Amenities:     10,
			},
		},
		PersonaProfile{
			Name:        DeveloperPersona,
			Description: "Property investor looking for growth and demand",
			Weights: WeightMap{
				InvestmentQuality: 40,
				DemandIndex:       25,
				RiskScore:         20,
				Infrastructure:    15,
			},
		},
	)
}
