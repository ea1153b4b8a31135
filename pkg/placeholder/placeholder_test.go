package placeholder

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/testutil"
)

func TestProtectRestoreRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{name: "no placeholders", input: "core:\n  enable: true\n", count: 0},
		{name: "whole value", input: "upf:\n  addr: {{ core.upf.access_subnet }}\n", count: 1},
		{name: "inside double quotes", input: "dnn: \"{{ core.dnn }}\"\n", count: 1},
		{name: "inside single quotes", input: "dnn: '{{ core.dnn }}'\n", count: 1},
		{name: "part of plain scalar", input: "gw: {{ core.gw }}/24\n", count: 1},
		{name: "sequence item", input: "hosts:\n  - {{ groups.master[0] }}\n  - static\n", count: 1},
		{name: "two on one line", input: "ep: {{ host }}:{{ port }}\n", count: 2},
		{name: "trailing comment", input: "mtu: {{ mtu }} # jumbo\n", count: 1},
		{name: "filters and quotes", input: "ip: \"{{ addr | ipaddr('address') }}\"\n", count: 1},
		{name: "no trailing newline", input: "x: {{ y }}", count: 1},
		{name: "many placeholders", input: manyPlaceholders(15), count: 15},
		{name: "digit after placeholder", input: "a: {{ first }}\nb: x{{ second }}0\n" + manyPlaceholders(10), count: 12},
		{name: "digits between placeholders", input: "v: {{ a }}1{{ b }}23{{ c }}_4\n" + manyPlaceholders(11), count: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, table := Protect(tt.input)
			assert.Equal(t, tt.count, table.Len())
			assert.NotContains(t, safe, "{{")

			if tt.count == 0 {
				assert.Equal(t, tt.input, safe)
				restored, err := Restore(safe, table)
				require.NoError(t, err)
				assert.Equal(t, tt.input, restored)
				return
			}

			restored, err := Restore(safe, table)
			require.NoError(t, err)
			assert.Equal(t, tt.input, restored)
		})
	}
}

func TestProtectedTextParsesAsYAML(t *testing.T) {
	input := `core:
  enable: true
  addr: {{ core.upf.access_subnet }}
  dnn: "{{ core.dnn }}"
  list:
    - {{ item }}
  gw: {{ gw }}/24
`
	_, err := yamlParse(input)
	require.Error(t, err, "raw template text should not parse")

	safe, table := Protect(input)
	require.Equal(t, 4, table.Len())
	_, err = yamlParse(safe)
	require.NoError(t, err)
}

func TestProtectQuotingDecision(t *testing.T) {
	safe, table := Protect("a: {{ x }}\nb: \"{{ y }}\"\nc: {{ z }}-suffix\n")
	entries := table.Entries()
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Quoted)
	assert.False(t, entries[1].Quoted)
	assert.False(t, entries[2].Quoted)
	assert.Equal(t, "a: \"CIPREP_TEMPLATE_0_\"\nb: \"CIPREP_TEMPLATE_1_\"\nc: CIPREP_TEMPLATE_2_-suffix\n", safe)
	assert.Equal(t, "{{ y }}", entries[1].Original)
}

func TestProtectTokensAreMonotonic(t *testing.T) {
	_, table := Protect(manyPlaceholders(3))
	for i, e := range table.Entries() {
		assert.Equal(t, fmt.Sprintf("%s%d_", DefaultTokenPrefix, i), e.Token)
	}
}

func TestProtectAvoidsExistingPrefix(t *testing.T) {
	input := "note: CIPREP_TEMPLATE_0 is literal\nv: {{ x }}\n"
	safe, table := Protect(input)
	require.Equal(t, 1, table.Len())
	token := table.Entries()[0].Token
	assert.False(t, strings.HasPrefix(token, DefaultTokenPrefix))

	restored, err := Restore(safe, table)
	require.NoError(t, err)
	assert.Equal(t, input, restored)
}

func TestRestoreLongestTokenFirst(t *testing.T) {
	input := manyPlaceholders(12)
	safe, table := Protect(input)

	// Strip quotes the way a serializer might, so bare forms must be matched.
	unquoted := strings.ReplaceAll(safe, `"`, "")
	restored, err := Restore(unquoted, table)
	require.NoError(t, err)
	assert.Equal(t, input, restored)
	assert.Contains(t, restored, "{{ v11 }}")
}

func TestRestoreBareFormForQuotedEntry(t *testing.T) {
	safe, table := Protect("a: {{ x }}\n")
	require.Equal(t, "a: \"CIPREP_TEMPLATE_0_\"\n", safe)

	restored, err := Restore("a: CIPREP_TEMPLATE_0_\n", table)
	require.NoError(t, err)
	assert.Equal(t, "a: {{ x }}\n", restored)
}

func TestRestoreNothingRestoredIsFatal(t *testing.T) {
	_, table := Protect("a: {{ x }}\nb: {{ y }}\n")

	_, err := Restore("a: null\nb: null\n", table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNothingRestored))
}

func TestRestorePartialWarns(t *testing.T) {
	safe, table := Protect("a: {{ x }}\nb: {{ y }}\n")
	lost := strings.Replace(safe, `"CIPREP_TEMPLATE_1_"`, "replaced", 1)

	var restored string
	output, err := testutil.CaptureLogOutput(log.LevelWarn, func() {
		var rerr error
		restored, rerr = Restore(lost, table)
		require.NoError(t, rerr)
	})
	require.NoError(t, err)
	assert.Equal(t, "a: {{ x }}\nb: replaced\n", restored)
	assert.Contains(t, output, "CIPREP_TEMPLATE_1_")
}

func TestRestoreEmptyTable(t *testing.T) {
	restored, err := Restore("plain: text\n", &Table{})
	require.NoError(t, err)
	assert.Equal(t, "plain: text\n", restored)

	restored, err = Restore("plain: text\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain: text\n", restored)
}

func manyPlaceholders(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "k%d: {{ v%d }}\n", i, i)
	}
	return b.String()
}

func yamlParse(text string) (interface{}, error) {
	var out interface{}
	err := yaml.Unmarshal([]byte(text), &out)
	return out, err
}
