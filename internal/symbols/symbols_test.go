package symbols

import (
	"bytes"
	"debug/elf"
	"errors"
	"os"
	"reflect"
	"runtime"
	"testing"

	"github.com/pboyd/animlimit/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_ELF(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	data := buildELF(t, []elfSymbol{
		{name: "host.tableCapacity", typ: elf.STT_FUNC, addr: 0x401200, size: 48},
		{name: "host.animationLimit", typ: elf.STT_FUNC, addr: 0x401100, size: 16},
		{name: "host.registry", typ: elf.STT_OBJECT, addr: 0x500000, size: 8},
	})

	table, err := read(bytes.NewReader(data), "host")
	require.NoError(err)

	assert.Equal(Table{
		{Name: "host.animationLimit", Addr: 0x401100, Size: 16},
		{Name: "host.tableCapacity", Addr: 0x401200, Size: 48},
	}, table)

	_, ok := table.Lookup("host.registry")
	assert.False(ok, "data symbols are not code sites")

	slide, err := table.Slide("host.animationLimit", 0x7f0000401100)
	require.NoError(err)
	assert.Equal(uintptr(0x7f0000000000), slide)

	r := &Resolver{
		Table: table,
		Names: map[hook.SiteID]string{"capacity": "host.tableCapacity"},
		Slide: slide,
	}
	addr, err := r.Resolve("capacity")
	require.NoError(err)
	assert.Equal(uintptr(0x7f0000401200), addr)
}

func TestRead_NoSymbols(t *testing.T) {
	data := buildELF(t, nil)
	table, err := read(bytes.NewReader(data), "empty")
	if assert.NoError(t, err) {
		assert.Empty(t, table)
	}
}

//go:noinline
func fixture() int {
	return 1
}

func fixtureName(t *testing.T) (string, uintptr) {
	pc := reflect.ValueOf(fixture).Pointer()
	fn := runtime.FuncForPC(pc)
	require.NotNil(t, fn)
	return fn.Name(), pc
}

// readExecutable reads the test binary, skipping the test if it was linked
// without a symbol table.
func readExecutable(t *testing.T) Table {
	t.Helper()

	path, err := os.Executable()
	require.NoError(t, err)

	table, err := Read(path)
	if errors.Is(err, elf.ErrNoSymbols) {
		t.Skip("test binary has no symbol table")
	}
	require.NoError(t, err)
	return table
}

func TestRead_Executable(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is not ELF")
	}
	assert := assert.New(t)
	require := require.New(t)

	table := readExecutable(t)

	name, pc := fixtureName(t)
	sym, ok := table.Lookup(name)
	require.True(ok, "no symbol %s", name)
	assert.NotZero(sym.Size)

	slide, err := table.Slide(name, pc)
	require.NoError(err)
	assert.Equal(pc, sym.Addr+slide)

	assert.Contains(table.Match("symbols.fixture"), sym)
}

func TestExecutable(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is not ELF")
	}
	readExecutable(t)

	name, pc := fixtureName(t)

	r, err := Executable(name, pc)
	require.NoError(t, err)

	r.Names = map[hook.SiteID]string{"fixture": name, "missing": "no such symbol"}

	addr, err := r.Resolve("fixture")
	if assert.NoError(t, err) {
		assert.Equal(t, pc, addr)
	}

	_, err = r.Resolve("missing")
	assert.ErrorIs(t, err, hook.ErrNotFound)

	_, err = r.Resolve("unknown")
	assert.ErrorIs(t, err, hook.ErrNotFound)
}

func TestRead_Unrecognized(t *testing.T) {
	_, err := read(bytes.NewReader([]byte("not an object file")), "junk")
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestTable_Match(t *testing.T) {
	table := Table{
		{Name: "host.animationLimit", Addr: 0x1000},
		{Name: "host.tableCapacity", Addr: 0x2000},
		{Name: "main.main", Addr: 0x3000},
	}

	assert.Len(t, table.Match("host."), 2)
	assert.Empty(t, table.Match("nothing"))

	sym, ok := table.Lookup("main.main")
	assert.True(t, ok)
	assert.Equal(t, uintptr(0x3000), sym.Addr)
}
