package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/pkg/firecrawl"
	"github.com/sells-group/prospector/pkg/jina"
)

type fakeFirecrawl struct {
	resp  *firecrawl.ScrapeResponse
	err   error
	calls int
}

func (f *fakeFirecrawl) Scrape(context.Context, firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	f.calls++
	return f.resp, f.err
}

const profileContent = `# La Parrilla de Palermo
Parrilla tradicional en el corazón de Palermo. Reservas por WhatsApp.
12.5K followers
pedidos@laparrilla.com.ar
[Reservar](https://wa.me/5491148321098)
[Nuestra web](https://laparrilla.com.ar)
`

func TestSocialFetchCheapTier(t *testing.T) {
	fc := &fakeFirecrawl{}
	f := NewTieredSocialFetcher(&fakeJina{
		readResp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: profileContent}},
	}, fc)

	p, err := f.Fetch(context.Background(), "https://www.instagram.com/laparrillaba")
	require.NoError(t, err)
	assert.Equal(t, []string{"pedidos@laparrilla.com.ar"}, p.Emails)
	assert.Equal(t, "5491148321098", p.WhatsApp)
	assert.Equal(t, "https://laparrilla.com.ar", p.Website)
	assert.Equal(t, 12500, p.Followers)
	assert.NotEmpty(t, p.Bio)
	assert.Zero(t, fc.calls, "cheap tier succeeded, rendering tier must not run")
}

func TestSocialFetchEscalatesOnLoginWall(t *testing.T) {
	fc := &fakeFirecrawl{
		resp: &firecrawl.ScrapeResponse{
			Success: true,
			Data:    firecrawl.PageData{Markdown: profileContent},
		},
	}
	f := NewTieredSocialFetcher(&fakeJina{
		readResp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Inicia sesión para ver este contenido"}},
	}, fc)

	p, err := f.Fetch(context.Background(), "https://www.instagram.com/laparrillaba")
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, []string{"pedidos@laparrilla.com.ar"}, p.Emails)
}

func TestSocialFetchEscalatesWhenNoEmail(t *testing.T) {
	fc := &fakeFirecrawl{
		resp: &firecrawl.ScrapeResponse{
			Success: true,
			Data:    firecrawl.PageData{Markdown: "Reservas: reservas@laparrilla.com.ar"},
		},
	}
	f := NewTieredSocialFetcher(&fakeJina{
		readResp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Parrilla tradicional en el corazón de Palermo. Abierto todos los días."}},
	}, fc)

	p, err := f.Fetch(context.Background(), "https://www.instagram.com/laparrillaba")
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls, "email-less profile text must trigger the rendering tier")
	assert.Equal(t, []string{"reservas@laparrilla.com.ar"}, p.Emails)
}

func TestSocialFetchKeepsCheapParseWhenRenderingAddsNothing(t *testing.T) {
	cheap := "Parrilla tradicional en el corazón de Palermo. Reservas al 11 4832-1098."
	fc := &fakeFirecrawl{
		resp: &firecrawl.ScrapeResponse{
			Success: true,
			Data:    firecrawl.PageData{Markdown: "Parrilla tradicional."},
		},
	}
	f := NewTieredSocialFetcher(&fakeJina{
		readResp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: cheap}},
	}, fc)

	p, err := f.Fetch(context.Background(), "https://www.instagram.com/laparrillaba")
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls)
	assert.Empty(t, p.Emails)
	assert.NotEmpty(t, p.Phones, "cheap parse survives a fruitless rendered fetch")
}

func TestSocialFetchNoRenderingTier(t *testing.T) {
	f := NewTieredSocialFetcher(&fakeJina{
		readResp: &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Sign up to see photos"}},
	}, nil)

	_, err := f.Fetch(context.Background(), "https://www.instagram.com/laparrillaba")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login wall")
}
