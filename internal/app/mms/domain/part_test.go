package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    PartSpec
		wantErr error
	}{
		{name: "text part", spec: TextPart("1", "", "hello")},
		{name: "file part", spec: FilePart("img", "image/png", "/tmp/a.png")},
		{name: "missing content id", spec: TextPart("", "", "hello"), wantErr: ErrMissingContentID},
		{name: "empty text", spec: TextPart("1", "", ""), wantErr: ErrMissingContentSource},
		{name: "empty path", spec: FilePart("1", "", ""), wantErr: ErrMissingContentSource},
		{name: "no source", spec: PartSpec{ContentID: "1"}, wantErr: ErrMissingContentSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
