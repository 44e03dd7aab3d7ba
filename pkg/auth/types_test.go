package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Credentials
		want    Credentials
		wantErr error
	}{
		{
			name: "trims and lowercases email",
			in:   Credentials{Email: "  Ada@Novo.Test ", Password: " secret "},
			want: Credentials{Email: "ada@novo.test", Password: " secret "},
		},
		{name: "missing email", in: Credentials{Password: "x"}, wantErr: ErrMissingCredentials},
		{name: "blank email", in: Credentials{Email: "   ", Password: "x"}, wantErr: ErrMissingCredentials},
		{name: "missing password", in: Credentials{Email: "a@novo.test"}, wantErr: ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Credentials{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
