package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain address",
			text: "Escribinos a reservas@laparrilla.com.ar para reservar.",
			want: []string{"reservas@laparrilla.com.ar"},
		},
		{
			name: "deduplicates and lowercases",
			text: "Info@Cafe.com.ar o info@cafe.com.ar",
			want: []string{"info@cafe.com.ar"},
		},
		{
			name: "obfuscated at dot",
			text: "contacto [at] elcafe [dot] com",
			want: []string{"contacto@elcafe.com"},
		},
		{
			name: "obfuscated arroba punto",
			text: "pedidos (arroba) parrilla (punto) ar",
			want: []string{"pedidos@parrilla.ar"},
		},
		{
			name: "skips asset filenames",
			text: "logo@2x.png y hero@3x.jpg",
			want: nil,
		},
		{
			name: "skips placeholder domains",
			text: "tu@example.com",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEmails(tt.text))
		})
	}
}

func TestExtractPhones(t *testing.T) {
	phones := ExtractPhones("Llamanos al +54 11 4832-1098 o al 4765-2211")
	assert.NotEmpty(t, phones)
	assert.Contains(t, phones[0], "4832")

	assert.Empty(t, ExtractPhones("abierto de 10 a 18"))
}

func TestExtractWhatsApp(t *testing.T) {
	assert.Equal(t, "5491148321098", ExtractWhatsApp("https://wa.me/5491148321098"))
	assert.Equal(t, "5491148321098", ExtractWhatsApp("https://api.whatsapp.com/send?phone=5491148321098"))
	assert.Empty(t, ExtractWhatsApp("sin whatsapp"))
}

func TestExtractFollowers(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"12.5K followers", 12500},
		{"1.2M followers", 1200000},
		{"1.234 seguidores", 1234},
		{"845 seguidores", 845},
		{"no counts here", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFollowers(tt.text))
		})
	}
}
