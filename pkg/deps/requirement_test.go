package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintMatches(t *testing.T) {
	tests := []struct {
		requirement string
		matches     []string
		rejects     []string
	}{
		{">= 1.0.0 and < 2.0.0", []string{"1.0.0", "1.9.9"}, []string{"0.9.0", "2.0.0", "1.5.0-rc1"}},
		{"~> 1.2", []string{"1.2.0", "1.9.0"}, []string{"1.1.9", "2.0.0"}},
		{"~> 1.2.3", []string{"1.2.3", "1.2.9"}, []string{"1.2.2", "1.3.0"}},
		{"1.0.0", []string{"1.0.0"}, []string{"1.0.1"}},
		{"== 0.3.0 or >= 2.0.0", []string{"0.3.0", "2.1.0"}, []string{"1.0.0"}},
		{"!= 1.1.0", []string{"1.0.0", "1.2.0"}, []string{"1.1.0"}},
		{">= 1.0.0-rc1", []string{"1.0.0-rc2", "1.0.0"}, []string{"0.9.0"}},
		{"> 0.1", []string{"0.1.1"}, []string{"0.1.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.requirement, func(t *testing.T) {
			c, err := ParseConstraint(tt.requirement)
			require.NoError(t, err)
			for _, v := range tt.matches {
				assert.True(t, c.Matches(v), "%s should match %s", tt.requirement, v)
			}
			for _, v := range tt.rejects {
				assert.False(t, c.Matches(v), "%s should not match %s", tt.requirement, v)
			}
		})
	}
}

func TestParseConstraintErrors(t *testing.T) {
	for _, s := range []string{"", ">= ", "~> 1", ">= one", "1.0.0 and"} {
		_, err := ParseConstraint(s)
		assert.Error(t, err, s)
	}
}

func TestLatestStable(t *testing.T) {
	assert.Equal(t, "1.10.0", latestStable([]string{"1.2.0", "1.10.0", "2.0.0-rc1"}))
	assert.Equal(t, "", latestStable([]string{"1.0.0-alpha"}))
}
