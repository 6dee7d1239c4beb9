package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
	"github.com/dl-alexandre/ftpfetch/internal/sync/filter"
	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
)

type fakeLister struct {
	dirs   map[string][]Item
	fail   map[string]error
	listed []string
}

func (f *fakeLister) List(_ context.Context, remotePath string) ([]Item, error) {
	f.listed = append(f.listed, remotePath)
	if err, ok := f.fail[remotePath]; ok {
		return nil, err
	}
	items, ok := f.dirs[remotePath]
	if !ok {
		return nil, errors.New("550 no such directory")
	}
	return append([]Item(nil), items...), nil
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newFakeLister() *fakeLister {
	return &fakeLister{
		dirs: map[string][]Item{
			"/pub": {
				{Name: "b.txt", Kind: ItemFile, Size: 3, ModTime: t0},
				{Name: "a", Kind: ItemDir, ModTime: t0},
				{Name: "link", Kind: ItemLink},
				{Name: ".", Kind: ItemDir},
				{Name: "..", Kind: ItemDir},
			},
			"/pub/a": {
				{Name: "c.bin", Kind: ItemFile, Size: 10, ModTime: t0},
			},
		},
		fail: map[string]error{},
	}
}

func TestBuildRemote(t *testing.T) {
	lister := newFakeLister()

	root, err := BuildRemote(context.Background(), lister, "/pub", nil, nil)
	require.NoError(t, err)

	files, dirs := root.Count()
	assert.Equal(t, 2, files)
	assert.Equal(t, 1, dirs)

	c := root.Lookup(paths.MustNormalize("a/c.bin"))
	require.NotNil(t, c)
	assert.Equal(t, int64(10), c.Size)
	assert.Equal(t, t0, c.ModTime)
	assert.Nil(t, root.Lookup(paths.MustNormalize("link")))
	assert.Equal(t, []string{"/pub", "/pub/a"}, lister.listed)
}

func TestBuildRemoteListingFailure(t *testing.T) {
	lister := newFakeLister()
	lister.fail["/pub/a"] = errors.New("421 timeout")

	_, err := BuildRemote(context.Background(), lister, "/pub", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerr.ErrListingFailed)
	assert.Contains(t, err.Error(), "/pub/a")
}

func TestBuildRemoteSkipsExcludedDirectories(t *testing.T) {
	lister := newFakeLister()
	rules, err := filter.New([]string{"a"}, nil)
	require.NoError(t, err)

	root, err := BuildRemote(context.Background(), lister, "/pub", rules, nil)
	require.NoError(t, err)

	assert.Nil(t, root.Lookup(paths.MustNormalize("a")))
	assert.True(t, root.Pruned)
	assert.Equal(t, []string{"/pub"}, lister.listed)
}

func TestBuildRemoteSkipsUnusableNames(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]Item{
		"/": {
			{Name: "bad/name", Kind: ItemFile, Size: 1},
			{Name: "nul\x00", Kind: ItemFile, Size: 1},
			{Name: "ok", Kind: ItemFile, Size: 1},
		},
	}}

	root, err := BuildRemote(context.Background(), lister, "/", nil, nil)
	require.NoError(t, err)
	files, _ := root.Count()
	assert.Equal(t, 1, files)
}

func TestBuildRemoteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildRemote(ctx, newFakeLister(), "/pub", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildRemoteSkipsSelfEntries(t *testing.T) {
	pub := []Item{
		{Name: "pub", Kind: ItemDir, ModTime: t0},
		{Name: "a.txt", Kind: ItemFile, Size: 1, ModTime: t0},
	}
	tests := []struct {
		name     string
		nested   []Item
		fail     error
		wantPub  bool
		wantFile int
	}{
		{name: "server repeats the listing", nested: pub, wantFile: 1},
		{name: "name cannot be listed", fail: errors.New("550 no such directory"), wantFile: 1},
		{name: "real directory of the same name", nested: []Item{{Name: "b.txt", Kind: ItemFile, Size: 2, ModTime: t0}}, wantPub: true, wantFile: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{
				dirs: map[string][]Item{"/pub": pub},
				fail: map[string]error{},
			}
			if tt.fail != nil {
				lister.fail["/pub/pub"] = tt.fail
			} else {
				lister.dirs["/pub/pub"] = tt.nested
			}

			root, err := BuildRemote(context.Background(), lister, "/pub", nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPub, root.Lookup(paths.MustNormalize("pub")) != nil)
			files, _ := root.Count()
			assert.Equal(t, tt.wantFile, files)
			assert.Equal(t, []string{"/pub", "/pub/pub"}, lister.listed)
		})
	}
}

func TestBuildRemoteNestedListingFailureStillFatal(t *testing.T) {
	lister := &fakeLister{
		dirs: map[string][]Item{
			"/pub":     {{Name: "pub", Kind: ItemDir, ModTime: t0}},
			"/pub/pub": {{Name: "deeper", Kind: ItemDir, ModTime: t0}},
		},
		fail: map[string]error{"/pub/pub/deeper": errors.New("421 timeout")},
	}

	_, err := BuildRemote(context.Background(), lister, "/pub", nil, nil)
	assert.ErrorIs(t, err, syncerr.ErrListingFailed)
}
