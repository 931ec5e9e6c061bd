package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefault(t *testing.T) {
	r, err := BuildDefault()
	require.NoError(t, err)

	cfg, ok := r.Config(EntityUser)
	require.True(t, ok, "user entity must be registered")

	assert.Equal(t, []string{"id"}, cfg.Ordering)
	assert.Equal(t, []string{"email", "name"}, cfg.ListDisplay)
	assert.Equal(t, []string{"last_login"}, cfg.ReadOnlyFields)

	require.Len(t, cfg.Fieldsets, 3)
	assert.Equal(t, "", cfg.Fieldsets[0].Label)
	assert.Equal(t, []string{"email", "password"}, cfg.Fieldsets[0].Fields)
	assert.Equal(t, "Permissions", cfg.Fieldsets[1].Label)
	assert.Equal(t, "Important dates", cfg.Fieldsets[2].Label)

	// Форма добавления собирает пароль дважды
	assert.Contains(t, cfg.AddFields, "password1")
	assert.Contains(t, cfg.AddFields, "password2")
}

func TestRegistry_FrozenRejectsRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(EntityUser, ViewConfig{}))
	r.Freeze()

	err := r.Register(EntityType("widget"), ViewConfig{})
	require.Error(t, err)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(EntityUser, ViewConfig{}))
	require.Error(t, r.Register(EntityUser, ViewConfig{}))
}

func TestRegistry_UnknownEntity(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Config(EntityType("missing"))
	assert.False(t, ok)
}
