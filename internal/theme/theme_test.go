package theme

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

func TestService_DefaultsToLight(t *testing.T) {
	svc := NewService(NewMemoryStore())
	got, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, got)
}

func TestService_UnknownValueReadsAsLight(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), Key, "solarized"))

	got, err := NewService(store).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, got)
}

func TestService_Toggle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store)

	next, err := svc.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, next)

	v, ok, _ := store.Get(ctx, Key)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	next, err = svc.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, next)
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestService_ToggleWriteFailure(t *testing.T) {
	svc := NewService(&failingStore{MemoryStore: MemoryStore{values: map[string]string{}}})
	got, err := svc.Toggle(context.Background())
	assert.Error(t, err)
	assert.Equal(t, model.ThemeLight, got)
}

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "theme.db")

	store, err := OpenStore(ctx, "sqlite:"+path)
	require.NoError(t, err)
	svc := NewService(store)
	_, err = svc.Toggle(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	reopened, err := OpenStore(ctx, "sqlite://"+path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := NewService(reopened).Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, got)
}

func TestOpenStore_Schemes(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = OpenStore(ctx, "mongodb://localhost")
	assert.Error(t, err)

	_, err = OpenStore(ctx, "sqlite:")
	assert.Error(t, err)
}

func TestOpenStore_Redis_Live(t *testing.T) {
	url := os.Getenv("THEME_REDIS_URL")
	if url == "" {
		t.Skip("set THEME_REDIS_URL to run")
	}

	ctx := context.Background()
	store, err := OpenStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(store)
	before, err := svc.Current(ctx)
	require.NoError(t, err)
	after, err := svc.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Toggle(), after)
}
