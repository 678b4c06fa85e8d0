package webtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueID(t *testing.T) {
	t.Parallel()

	a := UniqueID()
	b := UniqueID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	name := artifactName(t)
	assert.True(t, strings.HasPrefix(name, "TestArtifactName-"), "got %q", name)
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, " ")

	// Two artifacts from the same test never collide.
	assert.NotEqual(t, name, artifactName(t))
}
