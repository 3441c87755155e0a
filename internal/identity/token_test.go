package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	tests := []struct {
		name    string
		age     int
		gender  Gender
		want    int
		wantErr bool
	}{
		{name: "male minimum age", age: 1, gender: Male, want: 6},
		{name: "male typical age", age: 40, gender: Male, want: 45},
		{name: "male maximum age", age: 99, gender: Male, want: 104},
		{name: "female minimum age", age: 1, gender: Female, want: 134},
		{name: "female typical age", age: 40, gender: Female, want: 173},
		{name: "female maximum age", age: 99, gender: Female, want: 232},
		{name: "age zero rejected", age: 0, gender: Male, wantErr: true},
		{name: "age over 99 rejected", age: 100, gender: Female, wantErr: true},
		{name: "unknown gender rejected", age: 30, gender: Gender("other"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Token(tt.age, tt.gender)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenRangesNeverOverlap(t *testing.T) {
	for age := 1; age <= 99; age++ {
		m, err := Token(age, Male)
		require.NoError(t, err)
		f, err := Token(age, Female)
		require.NoError(t, err)
		assert.NotEqual(t, m, f)
		assert.Less(t, m, 134, "male token must stay below the female range")
		assert.GreaterOrEqual(t, f, 134, "female token must stay within its offset range")
	}
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender("male")
	require.NoError(t, err)
	assert.Equal(t, Male, g)

	g, err = ParseGender("female")
	require.NoError(t, err)
	assert.Equal(t, Female, g)

	_, err = ParseGender("unspecified")
	assert.Error(t, err)
}
