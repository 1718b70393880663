package slug

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"pocabinder/internal/apperr"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bts", "Bts"},
		{"BTS", "Bts"},
		{"Bts", "Bts"},
		{"  jung   KOOK  ", "Jung Kook"},
		{"stray kids", "Stray Kids"},
		{"jOSÉ maría", "José María"},
		{"proof\tstandard\nver", "Proof Standard Ver"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"José María", "jose-maria"},
		{"BTS", "bts"},
		{"Stray Kids", "stray-kids"},
		{"Proof (Standard)", "proof-standard"},
		{"  --Hello,   World!--  ", "hello-world"},
		{"Ñandú", "nandu"},
		{"2NE1", "2ne1"},
		{"!!!", ""},
		{"", ""},
		{"방탄소년단", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNormalize_CaseVariantsCollapse(t *testing.T) {
	assert.Equal(t, Normalize("bts"), Normalize("BTS"))
	assert.Equal(t, Normalize("BTS"), Normalize("Bts"))
	assert.Equal(t, Slugify("bts"), Slugify("BTS"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("jose-maria"))
	assert.True(t, Valid("a"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("-a"))
	assert.False(t, Valid("a--b"))
	assert.False(t, Valid("A"))
}

func TestDerive(t *testing.T) {
	display, key, err := Derive("groupName", "  stray   KIDS ")
	assert.NoError(t, err)
	assert.Equal(t, "Stray Kids", display)
	assert.Equal(t, "stray-kids", key)

	_, _, err = Derive("groupName", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, map[string]string{"groupName": "is required"}, err.(*apperr.Error).Details)

	_, _, err = Derive("memberName", "!!!")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, map[string]string{"memberName": "must contain a letter or digit"}, err.(*apperr.Error).Details)
}

func TestSlugify_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		once := Slugify(s)
		if twice := Slugify(once); twice != once {
			t.Fatalf("Slugify(%q) = %q, Slugify again = %q", s, once, twice)
		}
	})
}

func TestSlugify_WellFormedWhenInputHasASCIIAlphanumeric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.String().Draw(t, "prefix")
		anchor := rapid.SampledFrom([]rune("abcxyzABCXYZ0123456789")).Draw(t, "anchor")
		suffix := rapid.String().Draw(t, "suffix")
		s := prefix + string(anchor) + suffix

		got := Slugify(s)
		if !Valid(got) {
			t.Fatalf("Slugify(%q) = %q, not a well-formed slug", s, got)
		}
	})
}

func TestNormalize_NoSurroundingOrDoubleSpaces(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		got := Normalize(s)
		if strings.TrimFunc(got, unicode.IsSpace) != got {
			t.Fatalf("Normalize(%q) = %q has surrounding whitespace", s, got)
		}
		if strings.Contains(got, "  ") {
			t.Fatalf("Normalize(%q) = %q has a double space", s, got)
		}
	})
}
