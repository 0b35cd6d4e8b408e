package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"bare", Info{Version: "dev"}, "budgetinsights dev"},
		{"release", Info{Version: "1.2.0", Commit: "3f2a9c1d77e0", GoVersion: "go1.25.0"}, "budgetinsights 1.2.0 (3f2a9c1d) go1.25.0"},
		{"dirty", Info{Version: "1.2.0", Commit: "abc", Dirty: true}, "budgetinsights 1.2.0 (abc, dirty)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}

func TestWarning(t *testing.T) {
	assert.NotEmpty(t, Info{Version: "dev"}.Warning())
	assert.NotEmpty(t, Info{Version: "1.0.0", Commit: "abc", Dirty: true}.Warning())
	assert.Empty(t, Info{Version: "1.0.0", Commit: "abc"}.Warning())
	assert.Empty(t, Info{Version: "1.0.0"}.Warning())
}

func TestFields(t *testing.T) {
	f := Info{Version: "1.0.0", Commit: "abc"}.Fields()
	assert.Equal(t, "1.0.0", f["version"])
	assert.Equal(t, "abc", f["commit"])
	assert.NotContains(t, f, "built")
}

func TestGetUsesLinkerVersion(t *testing.T) {
	assert.Equal(t, Version, Get().Version)
}
