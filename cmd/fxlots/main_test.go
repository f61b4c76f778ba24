package main

import (
	"flag"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionCoversCommands(t *testing.T) {
	cmp := completion()

	var names, subs []string
	for _, c := range commands {
		names = append(names, c.Name())
		sub, ok := cmp.Sub[c.Name()]
		require.True(t, ok, "no completion for %s", c.Name())

		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		fs.VisitAll(func(f *flag.Flag) {
			assert.Contains(t, sub.Flags, f.Name, "%s -%s", c.Name(), f.Name)
		})
	}
	for name := range cmp.Sub {
		subs = append(subs, name)
	}
	sort.Strings(names)
	sort.Strings(subs)
	assert.Equal(t, names, subs)

	for _, name := range []string{"store", "data-dir", "postgres-dsn", "rates", "plain"} {
		require.NotNil(t, flag.Lookup(name), name)
		assert.Contains(t, cmp.Flags, name)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("FXLOTS_TEST_VALUE", "  postgres ")
	assert.Equal(t, "postgres", envOr("FXLOTS_TEST_VALUE", "file"))

	t.Setenv("FXLOTS_TEST_VALUE", " ")
	assert.Equal(t, "file", envOr("FXLOTS_TEST_VALUE", "file"))
}
