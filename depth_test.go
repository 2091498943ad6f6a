package scopetrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DepthWellNested(t *testing.T) {
	d := depthTracker{}
	a := siteKey{file: "a.go", function: "a"}
	b := siteKey{file: "b.go", function: "b"}
	c := siteKey{file: "c.go", function: "c"}

	assert.True(t, d.enterHierarchy(1, a, 10))
	assert.True(t, d.enterHierarchy(1, b, 20))
	d.increment(1)
	assert.True(t, d.enterHierarchy(1, c, 30))
	assert.Equal(t, 4, d.level(1))
	assert.Equal(t, "      ", d.indent(1))

	assert.True(t, d.exit(1, &c))
	assert.True(t, d.exit(1, nil))
	assert.True(t, d.exit(1, &b))
	assert.Equal(t, 1, d.total)
	assert.Len(t, d.sites, 1)

	assert.True(t, d.exit(1, &a))
	assert.Equal(t, 0, d.total)
	assert.Empty(t, d.sites)
	assert.Empty(t, d.threads)
	assert.Equal(t, "", d.indent(1))
}

func Test_DepthSameLineReentryAddsLevel(t *testing.T) {
	d := depthTracker{}
	f := siteKey{file: "f.go", function: "f"}

	assert.True(t, d.enterHierarchy(1, f, 10))
	assert.True(t, d.enterHierarchy(1, f, 10))
	assert.Equal(t, 2, d.level(1))
}

func Test_DepthDifferentLineReentrySuppressed(t *testing.T) {
	d := depthTracker{}
	f := siteKey{file: "f.go", function: "f"}

	assert.True(t, d.enterHierarchy(1, f, 10))
	assert.False(t, d.enterHierarchy(1, f, 12))
	assert.Equal(t, 1, d.level(1))
	assert.Equal(t, 10, d.sites[f])
}

func Test_DepthPerThread(t *testing.T) {
	d := depthTracker{}
	d.increment(1)
	d.increment(1)
	d.increment(2)

	assert.Equal(t, "  ", d.indent(1))
	assert.Equal(t, "", d.indent(2))
	assert.Equal(t, 3, d.total)

	assert.True(t, d.exit(2, nil))
	assert.Equal(t, 2, d.level(1))
	assert.Equal(t, 2, d.total)
}

func Test_DepthExitClamped(t *testing.T) {
	d := depthTracker{}
	f := siteKey{file: "f.go", function: "f"}
	d.increment(1)

	assert.False(t, d.exit(2, &f))
	assert.Equal(t, 1, d.total)
	assert.Equal(t, 0, d.level(2))

	assert.True(t, d.exit(1, nil))
	assert.False(t, d.exit(1, nil))
	assert.Equal(t, 0, d.total)
}

func Test_DepthResetClearsLeakedSites(t *testing.T) {
	d := depthTracker{}
	leaked := siteKey{file: "f.go", function: "leaked"}
	g := siteKey{file: "g.go", function: "g"}

	d.sites = map[siteKey]int{leaked: 3}
	assert.True(t, d.enterHierarchy(1, g, 1))
	assert.True(t, d.exit(1, &g))

	assert.Empty(t, d.sites)
	assert.True(t, d.enterHierarchy(1, leaked, 99))
}
