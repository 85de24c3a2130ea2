package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/storage/archive"
	"github.com/newthinker/zella/internal/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdateBumpsVersion(t *testing.T) {
	s, err := New(temporal.DefaultProfile(), nil, nil)
	require.NoError(t, err)

	_, v := s.Current()
	assert.Equal(t, uint64(1), v)

	var notified []uint64
	s.Subscribe(func(p temporal.Profile, version uint64) { notified = append(notified, version) })

	p := temporal.DefaultProfile()
	p.Sessions.London = temporal.Window{Start: "07:00", End: "16:00"}
	v, err = s.Update(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
	assert.Equal(t, []uint64{2}, notified)

	got, _ := s.Current()
	assert.Equal(t, "07:00", got.Sessions.London.Start)
}

func TestStore_RejectsInvalidProfile(t *testing.T) {
	s, _ := New(temporal.DefaultProfile(), nil, nil)

	bad := temporal.DefaultProfile()
	bad.Sessions.Asian.End = "25:00"
	_, err := s.Update(context.Background(), bad)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, v := s.Current()
	assert.Equal(t, uint64(1), v)

	_, err = New(bad, nil, nil)
	assert.Error(t, err)
}

func TestStore_PersistsAndLoads(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	s, _ := New(temporal.DefaultProfile(), fs, nil)
	p := temporal.DefaultProfile()
	p.CalendarZone = "Europe/London"
	_, err = s.Update(ctx, p)
	require.NoError(t, err)

	fresh, _ := New(temporal.DefaultProfile(), fs, nil)
	require.NoError(t, fresh.Load(ctx))
	got, v := fresh.Current()
	assert.Equal(t, "Europe/London", got.CalendarZone)
	assert.Equal(t, uint64(2), v)
}

func TestStore_LoadWithoutPersistedProfile(t *testing.T) {
	fs, _ := archive.NewLocalFS(t.TempDir())
	s, _ := New(temporal.DefaultProfile(), fs, nil)
	require.NoError(t, s.Load(context.Background()))
	_, v := s.Current()
	assert.Equal(t, uint64(1), v)
}

// stallingArchive holds the first Write after the data is on disk, until
// release is closed.
type stallingArchive struct {
	*archive.LocalFS
	once    sync.Once
	written chan struct{}
	release chan struct{}
}

func (a *stallingArchive) Write(ctx context.Context, path string, data []byte) error {
	if err := a.LocalFS.Write(ctx, path, data); err != nil {
		return err
	}
	a.once.Do(func() {
		close(a.written)
		<-a.release
	})
	return nil
}

func TestStore_ConcurrentUpdatesPersistActiveProfile(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	arch := &stallingArchive{LocalFS: fs, written: make(chan struct{}), release: make(chan struct{})}
	s, _ := New(temporal.DefaultProfile(), arch, nil)
	ctx := context.Background()

	first := temporal.DefaultProfile()
	first.CalendarZone = "Europe/London"
	second := temporal.DefaultProfile()
	second.CalendarZone = "Asia/Tokyo"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.Update(ctx, first)
		assert.NoError(t, err)
	}()
	<-arch.written
	go func() {
		defer wg.Done()
		_, err := s.Update(ctx, second)
		assert.NoError(t, err)
	}()
	time.Sleep(20 * time.Millisecond)
	close(arch.release)
	wg.Wait()

	active, v := s.Current()
	assert.Equal(t, uint64(3), v)

	reloaded, _ := New(temporal.DefaultProfile(), fs, nil)
	require.NoError(t, reloaded.Load(ctx))
	persisted, _ := reloaded.Current()
	assert.Equal(t, active.CalendarZone, persisted.CalendarZone)
	assert.Equal(t, "Asia/Tokyo", active.CalendarZone)
}
