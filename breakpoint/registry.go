package breakpoint

import "github.com/fanyingfx/sdb/internal/sdberr"

// Registry owns every breakpoint site created for one process,
// assigning each a monotonically increasing id the way the original's
// stoppoint_collection and delve's breakpointIDCounter both do.
type Registry struct {
	sites  []*Site
	nextID int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nextID: 1}
}

// Push creates and stores a new site at address, failing if one
// already exists there.
func (r *Registry) Push(mem MemoryAccess, address VirtAddr) (*Site, error) {
	if r.ContainsAddress(address) {
		return nil, sdberr.Sendf("Breakpoint site already created at address %s", address)
	}
	site := newSite(r.nextID, mem, address)
	r.nextID++
	r.sites = append(r.sites, site)
	return site, nil
}

// ContainsID reports whether a site with the given id exists.
func (r *Registry) ContainsID(id int) bool {
	_, ok := r.find(func(s *Site) bool { return s.id == id })
	return ok
}

// ContainsAddress reports whether a site exists at the given address.
func (r *Registry) ContainsAddress(address VirtAddr) bool {
	_, ok := r.find(func(s *Site) bool { return s.address == address })
	return ok
}

// EnabledStoppointAtAddress reports whether a site at address exists
// and is currently enabled.
func (r *Registry) EnabledStoppointAtAddress(address VirtAddr) bool {
	site, ok := r.find(func(s *Site) bool { return s.address == address })
	return ok && site.IsEnabled()
}

// GetByID returns the site with the given id.
func (r *Registry) GetByID(id int) (*Site, error) {
	site, ok := r.find(func(s *Site) bool { return s.id == id })
	if !ok {
		return nil, sdberr.Sendf("No breakpoint site with id %d", id)
	}
	return site, nil
}

// GetByAddress returns the site at the given address.
func (r *Registry) GetByAddress(address VirtAddr) (*Site, error) {
	site, ok := r.find(func(s *Site) bool { return s.address == address })
	if !ok {
		return nil, sdberr.Sendf("No breakpoint site at address %s", address)
	}
	return site, nil
}

// RemoveByID disables and removes the site with the given id.
func (r *Registry) RemoveByID(id int) error {
	return r.remove(func(s *Site) bool { return s.id == id })
}

// RemoveByAddress disables and removes the site at the given address.
func (r *Registry) RemoveByAddress(address VirtAddr) error {
	return r.remove(func(s *Site) bool { return s.address == address })
}

func (r *Registry) remove(pred func(*Site) bool) error {
	for i, s := range r.sites {
		if pred(s) {
			if err := s.Disable(); err != nil {
				return err
			}
			r.sites = append(r.sites[:i], r.sites[i+1:]...)
			return nil
		}
	}
	return sdberr.Send("No matching breakpoint site to remove")
}

func (r *Registry) find(pred func(*Site) bool) (*Site, bool) {
	for _, s := range r.sites {
		if pred(s) {
			return s, true
		}
	}
	return nil, false
}

// ForEach calls fn for every site in creation order.
func (r *Registry) ForEach(fn func(*Site)) {
	for _, s := range r.sites {
		fn(s)
	}
}

// Len returns the number of sites currently registered.
func (r *Registry) Len() int { return len(r.sites) }

// Empty reports whether the registry holds no sites.
func (r *Registry) Empty() bool { return len(r.sites) == 0 }
