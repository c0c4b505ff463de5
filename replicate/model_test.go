package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/go-replicate/apierror"
)

func TestParseModelRef(t *testing.T) {
	tests := []struct {
		in       string
		want     ModelRef
		endpoint string
		wantErr  bool
	}{
		{in: "stability-ai/sdxl", want: ModelRef{Owner: "stability-ai", Name: "sdxl"}, endpoint: "/v1/models/stability-ai/sdxl/predictions"},
		{in: "stability-ai/sdxl:39ed52f2", want: ModelRef{Owner: "stability-ai", Name: "sdxl", Version: "39ed52f2"}, endpoint: "/v1/predictions"},
		{in: "39ed52f2", want: ModelRef{Version: "39ed52f2"}, endpoint: "/v1/predictions"},
		{in: " owner/name ", want: ModelRef{Owner: "owner", Name: "name"}, endpoint: "/v1/models/owner/name/predictions"},
		{in: "", wantErr: true},
		{in: "owner/", wantErr: true},
		{in: "/name", wantErr: true},
		{in: "a/b/c", wantErr: true},
		{in: "owner/name:", wantErr: true},
		{in: "abc:def", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelRef(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.endpoint, got.endpoint())

			again, err := ParseModelRef(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}
