package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrefersLinkerValues(t *testing.T) {
	info := resolve("1.2.0", "0123456789abcdef", "2026-01-02", vcsStamp{revision: "ffffffff", modified: true})
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.False(t, info.Modified)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "1.2.0 (0123456)", info.String())
}

func TestResolveFallsBackToVCSStamp(t *testing.T) {
	info := resolve("", "", "", vcsStamp{revision: "abcdef0123", time: "2026-03-04T05:06:07Z", modified: true})
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "2026-03-04T05:06:07Z", info.BuildTime)
	assert.Equal(t, "dev (abcdef0-dirty)", info.String())
}

func TestStringWithoutCommit(t *testing.T) {
	assert.Equal(t, "dev", Info{Version: "dev"}.String())
}
