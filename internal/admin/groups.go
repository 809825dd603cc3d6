package admin

// Group is the LMP "Group" roster record persisted at
// lmp_data:groups (§6, opcodes 80-83 GROUP_*). Not elaborated in the
// component design; implemented here as a thin roster reusing the Storage
// Adapter (SPEC_FULL.md §4).
type Group struct {
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
}

// groupsDocument is the shape persisted under key "groups" in collection
// "lmp_data" (§6).
type groupsDocument struct {
	Groups map[string]Group `json:"groups"`
}

// Groups manages the in-memory roster for one match, persisted through a
// BanStore-shaped store (reused here since both are simple put/get/delete
// collections).
type Groups struct {
	store BanStore
	live  map[string]Group
}

// NewGroups constructs a Groups manager and loads any persisted roster.
func NewGroups(store BanStore) *Groups {
	g := &Groups{store: store, live: make(map[string]Group)}
	var doc groupsDocument
	if store != nil {
		if found, err := store.Get("lmp_data", "groups", &doc); err == nil && found {
			g.live = doc.Groups
			if g.live == nil {
				g.live = make(map[string]Group)
			}
		}
	}
	return g
}

func (g *Groups) persist() error {
	if g.store == nil {
		return nil
	}
	return g.store.Put("lmp_data", "groups", groupsDocument{Groups: g.live})
}

// Create adds a new group roster.
func (g *Groups) Create(name, owner string, members []string) error {
	if g == nil {
		return nil
	}
	g.live[name] = Group{Name: name, Owner: owner, Members: members}
	return g.persist()
}

// Remove deletes a group roster; only the owner may do so (enforced by the
// caller).
func (g *Groups) Remove(name string) error {
	if g == nil {
		return nil
	}
	delete(g.live, name)
	return g.persist()
}

// Update replaces a group's membership list.
func (g *Groups) Update(name string, members []string) error {
	if g == nil {
		return nil
	}
	group, ok := g.live[name]
	if !ok {
		return nil
	}
	group.Members = members
	g.live[name] = group
	return g.persist()
}

// List returns every known group.
func (g *Groups) List() []Group {
	if g == nil {
		return nil
	}
	out := make([]Group, 0, len(g.live))
	for _, group := range g.live {
		out = append(out, group)
	}
	return out
}

// Get returns one group by name.
func (g *Groups) Get(name string) (Group, bool) {
	if g == nil {
		return Group{}, false
	}
	group, ok := g.live[name]
	return group, ok
}
