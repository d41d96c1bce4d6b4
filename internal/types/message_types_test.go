package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want ID
	}{
		{"string", `"41"`, "41"},
		{"number", `41`, "41"},
		{"temp id", `"temp_1714550400"`, "temp_1714550400"},
		{"null", `null`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &id))
			require.Equal(t, tc.want, id)
		})
	}
}

func TestIDMarshalsAsString(t *testing.T) {
	raw, err := json.Marshal(ID("41"))
	require.NoError(t, err)
	require.Equal(t, `"41"`, string(raw))
}
