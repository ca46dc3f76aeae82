package hook

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffFuncs(t *testing.T) {
	typeOf := func(fn any) reflect.Type { return reflect.TypeOf(fn) }

	t.Run("same", func(t *testing.T) {
		d := diffFuncs(typeOf(func(int) int { return 0 }), typeOf(func(int) int { return 0 }))
		assert.NoError(t, d.Error())
	})

	t.Run("extra argument", func(t *testing.T) {
		d := diffFuncs(typeOf(func(int) int { return 0 }), typeOf(func(int, string) int { return 0 }))
		if assert.Len(t, d.In, 2) {
			assert.Nil(t, d.In[0])
			assert.Nil(t, d.In[1].A)
			assert.Equal(t, reflect.TypeOf(""), d.In[1].B)
		}
		assert.ErrorContains(t, d.Error(), "argument 1")
	})

	t.Run("different output", func(t *testing.T) {
		d := diffFuncs(typeOf(func() int { return 0 }), typeOf(func() int32 { return 0 }))
		assert.ErrorContains(t, d.Error(), "output 0: int != int32")
	})

	t.Run("variadic", func(t *testing.T) {
		d := diffFuncs(typeOf(func(...int) {}), typeOf(func([]int) {}))
		assert.True(t, d.Variadic)
		assert.ErrorContains(t, d.Error(), "variadic")
	})
}
