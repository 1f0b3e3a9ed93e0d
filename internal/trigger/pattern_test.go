package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberGroups(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"plain", `^(\w+) hits (\w+)`, `^(\w+) hits (\w+)`},
		{"python named", `(?P<who>\w+) hits (\w+)`, `(\w+) hits (\w+)`},
		{"dotnet named", `(?<who>\w+) hits (\w+)`, `(\w+) hits (\w+)`},
		{"quoted named", `(?'who'\w+) hits`, `(\w+) hits`},
		{"python backref", `(?P<w>\w+) and (?P=w)`, `(\w+) and (?:\1)`},
		{"k backref", `(\d) (?<w>\w+) \k<w>`, `(\d) (\w+) (?:\2)`},
		{"lookbehind untouched", `(?<=hp:)(\d+)(?<!x)`, `(?<=hp:)(\d+)(?<!x)`},
		{"non-capturing untouched", `(?:a|b)(?P<c>c)`, `(?:a|b)(c)`},
		{"escaped paren", `\((?P<n>\d+)\)`, `\((\d+)\)`},
		{"paren in class", `[(?P<x>](?P<y>y)`, `[(?P<x>](y)`},
		{"bracket first in class", `[]a(](?P<y>y)\k<y>`, `[]a(](y)(?:\1)`},
		{"comment", `(?# (?P<no> )(?P<y>y)\k<y>`, `(?# (?P<no> )(y)(?:\1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numberGroups(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberGroups_Errors(t *testing.T) {
	for _, src := range []string{
		`(?P<a>x)(?P<a>y)`,
		`(?P=nope)`,
		`(?<a>x)\k<b>`,
		`(?P<>x)`,
		`(?P<open`,
	} {
		_, err := numberGroups(src)
		assert.Error(t, err, src)
	}
}

func TestCompilePattern_GroupOrder(t *testing.T) {
	for _, src := range []string{
		`(?P<who>\w+) hits (\w+)`,
		`(?<who>\w+) hits (\w+)`,
	} {
		re, err := compilePattern(src)
		require.NoError(t, err, src)
		m, err := re.FindStringMatch("orc hits you")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "orc", m.GroupByNumber(1).String(), src)
		assert.Equal(t, "you", m.GroupByNumber(2).String(), src)
	}
}

func TestCompilePattern_UnicodeWordClass(t *testing.T) {
	re, err := compilePattern(`^(?P<who>\w+)向你攻击`)
	require.NoError(t, err)
	m, err := re.FindStringMatch("山贼向你攻击")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "山贼", m.GroupByNumber(1).String())
}
