package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Linen Shirt", "linen-shirt"},
		{"  Trimmed  ", "trimmed"},
		{"Hello   World!", "hello-world"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"Kadın Giyim", "kadin-giyim"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Crème Brûlée Set", "creme-brulee-set"},
		{"Straße", "strasse"},
		{"Smørrebrød Plate", "smorrebrod-plate"},
		{"Łódź", "lodz"},
		{"Tee 2-Pack (XL)", "tee-2-pack-xl"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Make(tt.input))
		})
	}
}

func TestMake_IsValid(t *testing.T) {
	for _, name := range []string{"Linen Shirt", "Crème Brûlée", "A  B  C"} {
		assert.True(t, Valid(Make(name)), name)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("linen-shirt"))
	assert.True(t, Valid("tee2"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("Linen-Shirt"))
	assert.False(t, Valid("double--dash"))
	assert.False(t, Valid("-leading"))
	assert.False(t, Valid("with space"))
}
