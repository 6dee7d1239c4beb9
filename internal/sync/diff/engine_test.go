package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl-alexandre/ftpfetch/internal/sync/filter"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

var mtime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func describe(p Plan) []string {
	out := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.String()
	}
	return out
}

func index(p Plan, s string) int {
	for i, a := range p.Actions {
		if a.String() == s {
			return i
		}
	}
	return -1
}

func mixed() *tree.Entry {
	root := tree.NewRoot()
	a := root.AddDir("a", mtime)
	a.AddFile("one.txt", 1, mtime)
	a.AddDir("deep", mtime).AddFile("two.txt", 2, mtime)
	root.AddFile("z.txt", 3, mtime)
	return root
}

func TestIdenticalTreesProduceEmptyPlan(t *testing.T) {
	plan := Compute(mixed(), mixed())
	assert.True(t, plan.Empty())
}

func TestRemoteOnlyFileUnderNewDirectory(t *testing.T) {
	remote := tree.NewRoot()
	remote.AddDir("x", mtime).AddFile("y.txt", 10, mtime)

	plan := Compute(tree.NewRoot(), remote)
	assert.Equal(t, []string{"create_dir x", "fetch x/y.txt"}, describe(plan))
	assert.Equal(t, int64(10), plan.Actions[1].Size)
	assert.Equal(t, mtime, plan.Actions[1].ModTime)
}

func TestLocalOnlyDeletesBottomUp(t *testing.T) {
	local := tree.NewRoot()
	local.AddDir("x", mtime).AddFile("y.txt", 10, mtime)

	plan := Compute(local, tree.NewRoot())
	assert.Equal(t, []string{"delete x/y.txt", "delete x"}, describe(plan))
	assert.Equal(t, tree.KindFile, plan.Actions[0].Kind)
	assert.Equal(t, tree.KindDir, plan.Actions[1].Kind)
}

func TestFileChangeDetection(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		modTime time.Time
		fetch   bool
	}{
		{name: "same", size: 10, modTime: mtime, fetch: false},
		{name: "sub-second difference", size: 10, modTime: mtime.Add(300 * time.Millisecond), fetch: false},
		{name: "size differs", size: 11, modTime: mtime, fetch: true},
		{name: "mtime differs", size: 10, modTime: mtime.Add(time.Second), fetch: true},
		{name: "both differ", size: 1, modTime: mtime.Add(-time.Hour), fetch: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := tree.NewRoot()
			local.AddFile("f", tt.size, tt.modTime)
			remote := tree.NewRoot()
			remote.AddFile("f", 10, mtime)

			plan := Compute(local, remote)
			if tt.fetch {
				assert.Equal(t, []string{"fetch f"}, describe(plan))
			} else {
				assert.True(t, plan.Empty())
			}
		})
	}
}

func TestKindMismatchDeletesThenCreates(t *testing.T) {
	local := tree.NewRoot()
	local.AddFile("x", 4, mtime)
	remote := tree.NewRoot()
	remote.AddDir("x", mtime).AddFile("inner", 1, mtime)

	plan := Compute(local, remote)
	assert.Equal(t, []string{"delete x", "create_dir x", "fetch x/inner"}, describe(plan))

	plan = Compute(remote, local)
	assert.Equal(t, []string{"delete x/inner", "delete x", "fetch x"}, describe(plan))
}

func TestOrderingInvariants(t *testing.T) {
	local := tree.NewRoot()
	old := local.AddDir("old", mtime)
	old.AddDir("sub", mtime).AddFile("f", 1, mtime)
	old.AddFile("g", 1, mtime)
	local.AddFile("stale.txt", 1, mtime)

	remote := tree.NewRoot()
	n := remote.AddDir("new", mtime)
	n.AddDir("sub", mtime).AddFile("f", 1, mtime)
	remote.AddFile("stale.txt", 2, mtime)

	plan := Compute(local, remote)

	// Children are deleted before their parents.
	assert.Less(t, index(plan, "delete old/sub/f"), index(plan, "delete old/sub"))
	assert.Less(t, index(plan, "delete old/sub"), index(plan, "delete old"))
	assert.Less(t, index(plan, "delete old/g"), index(plan, "delete old"))
	// Parents are created before their children.
	assert.Less(t, index(plan, "create_dir new"), index(plan, "create_dir new/sub"))
	assert.Less(t, index(plan, "create_dir new/sub"), index(plan, "fetch new/sub/f"))
	// Every delete precedes every creation.
	assert.Less(t, index(plan, "delete old"), index(plan, "create_dir new"))
	assert.NotEqual(t, -1, index(plan, "fetch stale.txt"))

	c := plan.Counts()
	assert.Equal(t, 2, c.CreateDirs)
	assert.Equal(t, 2, c.Fetches)
	assert.Equal(t, 4, c.Deletes)
	assert.Equal(t, int64(3), c.FetchBytes)
}

func TestPrunedDirectoryIsNotDeleted(t *testing.T) {
	local := tree.NewRoot()
	x := local.AddDir("x", mtime)
	x.AddFile("keep.me", 1, mtime)
	x.AddFile("visible", 1, mtime)

	rules, err := filter.New([]string{"x/keep.me"}, nil)
	require.NoError(t, err)

	plan := Compute(rules.Apply(local), tree.NewRoot())
	assert.Equal(t, []string{"delete x/visible"}, describe(plan))
}

func TestRemoteFileFacingPrunedDirectoryIsBlocked(t *testing.T) {
	local := tree.NewRoot()
	x := local.AddDir("x", mtime)
	x.AddFile("secret", 1, mtime)
	x.AddFile("visible", 1, mtime)
	remote := tree.NewRoot()
	remote.AddFile("x", 7, mtime)

	rules, err := filter.New([]string{"x/secret"}, nil)
	require.NoError(t, err)

	plan := Compute(rules.Apply(local), rules.Apply(remote))
	assert.Equal(t, []string{"delete x/visible"}, describe(plan))
	require.Len(t, plan.Blocked, 1)
	assert.Equal(t, "fetch x", plan.Blocked[0].String())
	assert.Equal(t, int64(7), plan.Blocked[0].Size)
	assert.Zero(t, plan.Counts().Fetches)

	// Once the visible file is gone the plan holds nothing to do, but the
	// blocked file is still reported.
	delete(x.Children, "visible")
	plan = Compute(rules.Apply(local), rules.Apply(remote))
	assert.True(t, plan.Empty())
	assert.Len(t, plan.Blocked, 1)
}

func TestKindMismatchOnUnprunedDirectoryReplacesIt(t *testing.T) {
	local := tree.NewRoot()
	local.AddDir("x", mtime).AddFile("old", 1, mtime)
	remote := tree.NewRoot()
	remote.AddFile("x", 7, mtime)

	plan := Compute(local, remote)
	assert.Equal(t, []string{"delete x/old", "delete x", "fetch x"}, describe(plan))
	assert.Empty(t, plan.Blocked)
}

func TestBlacklistedPathsNeverAppear(t *testing.T) {
	local := tree.NewRoot()
	local.AddDir("x", mtime).AddFile("local-only", 1, mtime)
	remote := tree.NewRoot()
	remote.AddDir("x", mtime).AddDir("y", mtime).AddFile("remote-only", 1, mtime)

	rules, err := filter.New([]string{"x"}, []string{"x/y"})
	require.NoError(t, err)

	plan := Compute(rules.Apply(local), rules.Apply(remote))
	assert.True(t, plan.Empty())
}

func TestNilTrees(t *testing.T) {
	assert.True(t, Compute(nil, nil).Empty())

	remote := tree.NewRoot()
	remote.AddFile("f", 1, mtime)
	assert.Equal(t, []string{"fetch f"}, describe(Compute(nil, remote)))
}

func TestPlanFilter(t *testing.T) {
	local := tree.NewRoot()
	local.AddFile("gone", 1, mtime)
	remote := tree.NewRoot()
	remote.AddDir("d", mtime).AddFile("f", 1, mtime)

	plan := Compute(local, remote)
	assert.Len(t, plan.Filter(ActionDelete), 1)
	assert.Len(t, plan.Filter(ActionFetch), 1)
	assert.Len(t, plan.Filter(ActionCreateDir), 1)
}
