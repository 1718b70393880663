package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocabinder/internal/apperr"
)

type binderRequest struct {
	Name         string  `json:"name" validate:"notblank,max=100"`
	PrimaryColor *string `json:"primaryColor,omitempty" validate:"omitempty,hexcolor3or6"`
	Rarity       string  `json:"rarity" validate:"omitempty,oneof=common limited pob special"`
	Priority     int     `json:"priority" validate:"gte=0,lte=10"`
}

func strPtr(s string) *string { return &s }

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(binderRequest{Name: "My Binder", PrimaryColor: strPtr("#FFB6C1"), Rarity: "pob", Priority: 3})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(binderRequest{Name: "   ", PrimaryColor: strPtr("pink"), Rarity: "mythic", Priority: 11})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be a hex colour like #FFF or #FFB6C1", details["primaryColor"])
	assert.Equal(t, "must be one of: common limited pob special", details["rarity"])
	assert.Equal(t, "must be less than or equal to 10", details["priority"])
}

func TestIsHexColor(t *testing.T) {
	for _, ok := range []string{"#FFF", "#fff", "#FFB6C1", "#e6e6fa"} {
		assert.True(t, IsHexColor(ok), ok)
	}
	for _, bad := range []string{"", "FFF", "#FFFF", "#GGGGGG", "#FFB6C1 ", "red"} {
		assert.False(t, IsHexColor(bad), bad)
	}
}
