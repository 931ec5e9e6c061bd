package admin

import "fmt"

// EntityType identifies an entity exposed on the admin surface.
type EntityType string

// EntityUser is the only registered entity.
const EntityUser EntityType = "user"

// Fieldset groups related fields on a detail/edit view.
type Fieldset struct {
	Label  string
	Fields []string
}

// ViewConfig describes how the admin surface presents an entity.
type ViewConfig struct {
	Ordering       []string
	ListDisplay    []string
	Fieldsets      []Fieldset
	ReadOnlyFields []string
	AddFields      []string
}

// Registry maps entity types to their admin view configuration. It is
// populated by explicit Register calls at startup and then frozen;
// afterwards it is read-only and safe for concurrent use.
type Registry struct {
	configs map[EntityType]ViewConfig
	frozen  bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[EntityType]ViewConfig)}
}

// Register adds a view configuration for an entity type. Registering
// after Freeze or registering the same entity twice is a programming
// error and fails loudly.
func (r *Registry) Register(entity EntityType, cfg ViewConfig) error {
	if r.frozen {
		return fmt.Errorf("admin registry is frozen, cannot register %q", entity)
	}
	if _, exists := r.configs[entity]; exists {
		return fmt.Errorf("entity %q already registered", entity)
	}
	r.configs[entity] = cfg
	return nil
}

// Freeze marks the registry read-only.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Config returns the view configuration for an entity type.
func (r *Registry) Config(entity EntityType) (ViewConfig, bool) {
	cfg, ok := r.configs[entity]
	return cfg, ok
}

// BuildDefault constructs and freezes the registry used by the server:
// the user entity with identity, permissions and audit fieldsets.
func BuildDefault() (*Registry, error) {
	r := NewRegistry()
	err := r.Register(EntityUser, ViewConfig{
		Ordering:    []string{"id"},
		ListDisplay: []string{"email", "name"},
		Fieldsets: []Fieldset{
			{Label: "", Fields: []string{"email", "password"}},
			{Label: "Permissions", Fields: []string{"is_active", "is_staff", "is_superuser"}},
			{Label: "Important dates", Fields: []string{"last_login"}},
		},
		ReadOnlyFields: []string{"last_login"},
		AddFields: []string{
			"email", "password1", "password2", "name",
			"is_active", "is_staff", "is_superuser",
		},
	})
	if err != nil {
		return nil, err
	}
	r.Freeze()
	return r, nil
}
