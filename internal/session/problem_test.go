package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProblemID(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "7", want: "7"},
		{raw: " 10\n", want: "10"},
		{raw: "0012", want: "0012"},
		{raw: "", wantErr: true},
		{raw: "   ", wantErr: true},
		{raw: "7a", wantErr: true},
		{raw: "-7", wantErr: true},
		{raw: "1 0", wantErr: true},
		{raw: "٣", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseProblemID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidProblemID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
