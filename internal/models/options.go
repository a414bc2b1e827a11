package models

// OptionSet holds the enumerable machine and source lists used to seed filter controls.
type OptionSet struct {
	Machines []string `json:"machinery"`
	Sources  []string `json:"sources"`
}

// Clone returns a deep copy.
func (o OptionSet) Clone() OptionSet {
	return OptionSet{Machines: cloneStrings(o.Machines), Sources: cloneStrings(o.Sources)}
}

// cloneStrings copies list, returning an empty non-nil slice for an empty list so it
// encodes as [] rather than null.
func cloneStrings(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// HasMachine reports whether name is one of the known machines.
func (o OptionSet) HasMachine(name string) bool {
	for _, m := range o.Machines {
		if m == name {
			return true
		}
	}
	return false
}

// SelectionState is the user's current filter choice.
type SelectionState struct {
	SelectedMachine string          `json:"selectedMachine"`
	SelectedSources map[string]bool `json:"selectedSources"`
}

// Clone returns a deep copy.
func (s SelectionState) Clone() SelectionState {
	out := SelectionState{SelectedMachine: s.SelectedMachine, SelectedSources: make(map[string]bool, len(s.SelectedSources))}
	for k, v := range s.SelectedSources {
		out.SelectedSources[k] = v
	}
	return out
}
