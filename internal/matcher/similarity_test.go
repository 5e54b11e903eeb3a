package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{"identical", "kovacs janos", "kovacs janos", 100},
		{"reordered", "kovacs janos", "janos kovacs", 100},
		{"duplicates ignored", "kovacs kovacs janos", "janos kovacs", 100},
		{"subset", "kovacs janos", "kovacs janos peter", 100},
		{"single shared token", "kovacs janos", "kovacs", 100},
		{"one letter typo", "kovacs janos", "kovach janos", 92},
		{"similar given name", "kovacs janos", "kovacs janka", 83},
		{"dropped letter", "horvath gabor", "horvat gabor", 96},
		{"near threshold above", "nagy akos", "nagy agnes", 74},
		{"shared given name only", "kiss maria", "nagy maria", 67},
		{"disjoint", "teszt elek", "kovacs janos", 18},
		{"no shared tokens", "abc", "abd", 67},
		{"empty side", "", "kovacs janos", 0},
		{"both empty", "", "", 0},
		{"case insensitive", "Kovacs Janos", "kovacs janos", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TokenSetRatio(tt.a, tt.b))
			assert.Equal(t, tt.expected, TokenSetRatio(tt.b, tt.a), "score must be symmetric")
		})
	}
}

func TestTokenSetRatio_Range(t *testing.T) {
	names := []string{"kovacs janos", "teszt elek", "nagy akos", "x", "szabo peter petra", "a b c d"}
	for _, a := range names {
		for _, b := range names {
			score := TokenSetRatio(a, b)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestTokenSetRatio_ReversalNeverChangesScore(t *testing.T) {
	pairs := [][2]string{
		{"kovacs janos", "janos kovacs"},
		{"nagy akos", "nagy agnes"},
		{"teszt elek", "kovacs janos"},
	}

	for _, p := range pairs {
		assert.Equal(t, TokenSetRatio(p[0], p[1]), TokenSetRatio(ReverseName(p[0]), p[1]))
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100.0, ratio("", ""))
	assert.Equal(t, 0.0, ratio("abc", ""))
	assert.Equal(t, 100.0, ratio("abc", "abc"))
	assert.InDelta(t, 66.666, ratio("abc", "abd"), 0.01)
	assert.Equal(t, 4, longestCommonSubsequence([]rune("kovacs"), []rune("kvcs")))
}

func TestNewTokenSet(t *testing.T) {
	assert.Equal(t, tokenSet{"a", "b", "c"}, newTokenSet(" c b a b "))
	assert.Nil(t, newTokenSet("   "))
}
