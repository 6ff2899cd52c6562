package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "winnebago:drive:eagle5"},
		{input: "*"},
		{input: "printer:print,query:*"},
		{input: "  lightsaber:*  "},
		{input: "", wantErr: true},
		{input: "   ", wantErr: true},
		{input: "a::b", wantErr: true},
		{input: "a:b:", wantErr: true},
		{input: "printer:print,,query", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePermission(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, p.String())
		})
	}
}

func TestPermissionImplies(t *testing.T) {
	tests := []struct {
		held      string
		requested string
		want      bool
	}{
		{"*", "anything:at:all", true},
		{"*", "x", true},
		{"lightsaber:*", "lightsaber:wield", true},
		{"lightsaber:*", "lightsaber", true},
		{"lightsaber", "lightsaber:wield:blue", true},
		{"lightsaber:wield", "lightsaber", false},
		{"lightsaber:*:blue", "lightsaber", false},
		{"lightsaber:*:*", "lightsaber", true},
		{"winnebago:drive:eagle5", "winnebago:drive:eagle5", true},
		{"winnebago:drive:eagle5", "winnebago:drive:eagle6", false},
		{"winnebago:drive:eagle5", "winnebago:drive", false},
		{"printer:print,query", "printer:print", true},
		{"printer:print,query", "printer:query", true},
		{"printer:print,query", "printer:print,query", true},
		{"printer:print", "printer:print,query", false},
		{"printer:*", "printer:print,query", true},
		{"Lightsaber:*", "lightsaber:wield", false},
		{"lightsaber:*", "", false},
		{"", "lightsaber:wield", false},
		{"a::b", "a:x:b", false},
	}

	for _, tt := range tests {
		t.Run(tt.held+" => "+tt.requested, func(t *testing.T) {
			assert.Equal(t, tt.want, PermissionImplies(tt.held, tt.requested))
		})
	}
}

func TestMustParsePermission_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParsePermission("") })
	assert.NotPanics(t, func() { MustParsePermission("a:b") })
}
