//go:build linux && amd64

package hook

import (
	"testing"

	"github.com/pboyd/animlimit/trampoline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:noinline
func fixedLimit() int {
	return 65535
}

//go:noinline
func clampedLimit() int {
	return 65535
}

//go:noinline
func changedLimit() int {
	return 65535
}

//go:noinline
func capacity(requested int) int {
	if requested > 65535 {
		return 65535
	}
	return requested
}

func siteOf(t *testing.T, fn any, capability Capability) CodeSite {
	t.Helper()

	spec := SiteSpec{ID: SiteID(t.Name()), Length: 16, Capability: capability}
	site, err := spec.Resolve(MapResolver{spec.ID: FuncAddr(fn)})
	require.NoError(t, err)
	return site
}

func restoreOnCleanup(t *testing.T, in *Installer, rec *PatchRecord) {
	t.Cleanup(func() {
		if rec.Status == Installed {
			assert.NoError(t, in.Restore(rec))
		}
	})
}

func TestInstall_Detour(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	in := NewInstaller(trampoline.NewAllocator(2))

	var original func() int
	rec, err := in.Install(siteOf(t, fixedLimit, Detour), func() int {
		return original() + 1
	}, &original)
	require.NoError(err)
	restoreOnCleanup(t, in, rec)

	assert.Equal(Installed, rec.Status)
	assert.Equal(65536, fixedLimit())
	assert.Equal(65535, original())
	assert.Len(rec.Patched, len(rec.Original))
	assert.Equal(rec.Patched, rec.Target().Read())
	assert.Equal([]*PatchRecord{rec}, in.Records())
}

func TestInstall_Closure(t *testing.T) {
	require := require.New(t)

	in := NewInstaller(trampoline.NewAllocator(1))

	limit := 200
	rec, err := in.Install(siteOf(t, clampedLimit, Detour), func() int {
		return limit
	}, nil)
	require.NoError(err)
	restoreOnCleanup(t, in, rec)

	assert.Equal(t, 200, clampedLimit())
	limit = 0
	assert.Equal(t, 0, clampedLimit())
}

func TestInstall_Replace(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	in := NewInstaller(trampoline.NewAllocator(1))

	assert.Equal(65535, capacity(100000))

	rec, err := in.Install(siteOf(t, capacity, Replace), func(requested int) int {
		return requested
	}, nil)
	require.NoError(err)
	restoreOnCleanup(t, in, rec)

	assert.Equal(100000, capacity(100000))
	assert.Equal(7, capacity(7))
}

func TestRestore(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	alloc := trampoline.NewAllocator(1)
	in := NewInstaller(alloc)

	before := siteOf(t, fixedLimit, Detour).Span.Read()

	rec, err := in.Install(siteOf(t, fixedLimit, Detour), func() int { return 1 }, nil)
	require.NoError(err)
	assert.Equal(1, fixedLimit())
	assert.Equal(1, alloc.InUse())

	require.NoError(in.Restore(rec))
	assert.Equal(Restored, rec.Status)
	assert.Equal(65535, fixedLimit())
	assert.Equal(before, rec.Site.Span.Read())
	assert.Equal(0, alloc.InUse())
	assert.Empty(in.Records())
	assert.Nil(rec.Slot())

	assert.ErrorIs(in.Restore(rec), ErrBadStatus)
}

func TestInstall_DoubleHook(t *testing.T) {
	require := require.New(t)

	in := NewInstaller(trampoline.NewAllocator(2))
	site := siteOf(t, fixedLimit, Detour)

	rec, err := in.Install(site, func() int { return 1 }, nil)
	require.NoError(err)
	restoreOnCleanup(t, in, rec)

	_, err = in.Install(site, func() int { return 2 }, nil)
	assert.ErrorIs(t, err, ErrDoubleHook)
	assert.Equal(t, 1, fixedLimit())
}

func TestPrepare_SiteTooShort(t *testing.T) {
	in := NewInstaller(trampoline.NewAllocator(1))

	site := siteOf(t, fixedLimit, Detour)
	site.Length = 3
	site.Span = site.Span.Sub(0, 3)

	_, err := in.Prepare(site, func() int { return 1 }, nil)
	var perr *PatchError
	if assert.ErrorAs(t, err, &perr) {
		assert.Equal(t, site.ID, perr.Site)
	}
	assert.ErrorIs(t, err, trampoline.ErrSiteTooShort)
}

func TestPrepare_Types(t *testing.T) {
	in := NewInstaller(trampoline.NewAllocator(1))
	detour := siteOf(t, fixedLimit, Detour)

	t.Run("logic not a function", func(t *testing.T) {
		_, err := in.Prepare(detour, 42, nil)
		assert.ErrorIs(t, err, ErrInputType)
	})

	t.Run("nil logic", func(t *testing.T) {
		var fn func() int
		_, err := in.Prepare(detour, fn, nil)
		assert.ErrorIs(t, err, ErrInputType)
	})

	t.Run("original not a pointer", func(t *testing.T) {
		_, err := in.Prepare(detour, func() int { return 1 }, func() int { return 2 })
		assert.ErrorIs(t, err, ErrInputType)
	})

	t.Run("original of another type", func(t *testing.T) {
		var original func(int) int
		_, err := in.Prepare(detour, func() int { return 1 }, &original)
		assert.ErrorIs(t, err, ErrDifferentType)
		assert.Contains(t, err.Error(), "argument 0")
	})

	t.Run("original of a replaced site", func(t *testing.T) {
		var original func(int) int
		_, err := in.Prepare(siteOf(t, capacity, Replace), func(n int) int { return n }, &original)
		assert.ErrorIs(t, err, ErrNotResumable)
	})

	assert.Empty(t, in.Records())
}

func TestPrepare_SlotsExhausted(t *testing.T) {
	in := NewInstaller(trampoline.NewAllocator(1))

	first, err := in.Prepare(siteOf(t, fixedLimit, Detour), func() int { return 1 }, nil)
	require.NoError(t, err)
	t.Cleanup(func() { in.Discard(first) })

	_, err = in.Prepare(siteOf(t, clampedLimit, Detour), func() int { return 1 }, nil)
	var aerr *AllocationError
	assert.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, trampoline.ErrSlotsExhausted)
}

func TestCommit(t *testing.T) {
	t.Run("twice", func(t *testing.T) {
		in := NewInstaller(trampoline.NewAllocator(1))
		rec, err := in.Install(siteOf(t, fixedLimit, Detour), func() int { return 1 }, nil)
		require.NoError(t, err)
		restoreOnCleanup(t, in, rec)

		assert.ErrorIs(t, in.Commit(rec), ErrBadStatus)
		assert.Equal(t, Installed, rec.Status)
	})

	t.Run("discarded", func(t *testing.T) {
		alloc := trampoline.NewAllocator(1)
		in := NewInstaller(alloc)
		rec, err := in.Prepare(siteOf(t, fixedLimit, Detour), func() int { return 1 }, nil)
		require.NoError(t, err)

		in.Discard(rec)
		assert.Equal(t, Failed, rec.Status)
		assert.ErrorIs(t, rec.Err, ErrDiscarded)
		assert.Equal(t, 0, alloc.InUse())
		assert.ErrorIs(t, in.Commit(rec), ErrBadStatus)
		assert.Equal(t, 65535, fixedLimit())
	})

	t.Run("site changed after prepare", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)

		alloc := trampoline.NewAllocator(1)
		in := NewInstaller(alloc)
		site := siteOf(t, changedLimit, Detour)

		rec, err := in.Prepare(site, func() int { return 1 }, nil)
		require.NoError(err)

		// MOVL $1, AX
		require.NoError(rec.Target().Write([]byte{0xb8, 0x01, 0x00, 0x00, 0x00}))
		t.Cleanup(func() { rec.Target().Write(rec.Original) })

		err = in.Commit(rec)
		assert.ErrorIs(err, ErrSiteChanged)
		assert.Equal(Failed, rec.Status)
		assert.Equal(err, rec.Err)
		assert.Equal(0, alloc.InUse())
		assert.Equal(1, changedLimit())
	})
}
