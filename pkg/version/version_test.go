package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVersionDevelWhenGitSHAUnset(t *testing.T) {
	GitSHA = ""
	SemVer = ""
	assert.Contains(t, Version(), devel)
}

func TestVersionIncludesGitSHA(t *testing.T) {
	defer func() { GitSHA = ""; SemVer = ""; BuildTime = time.Time{} }()

	GitSHA = "abcdef0123456789"
	SemVer = "v1.2.3"
	BuildTime = time.Unix(0, 0)

	out := Version()
	assert.Contains(t, out, GitSHA)
	assert.Contains(t, out, SemVer)
}

func TestShortUsesDevelWhenGitSHATooShort(t *testing.T) {
	defer func() { GitSHA = ""; SemVer = "" }()
	GitSHA = "abc"
	assert.Equal(t, devel, Short())
}

func TestShortPrependsSemVer(t *testing.T) {
	defer func() { GitSHA = ""; SemVer = "" }()
	GitSHA = "abcdef0123456789"
	SemVer = "v1.2.3"
	assert.Equal(t, "v1.2.3-abcdef01", Short())
}
