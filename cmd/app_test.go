package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospector/internal/config"
)

func TestEnrichBudgetOptions(t *testing.T) {
	cfg = &config.Config{}
	cfg.Enrich.BatchBudgetMs = 12000
	cfg.Enrich.SingleBudgetMs = 45000

	batch := batchEnrichOptions()
	assert.Equal(t, 12*time.Second, batch.MaxDuration)
	assert.True(t, batch.SearchWebsite && batch.ScrapeSocial && batch.ScrapeWebsite)

	single := singleEnrichOptions()
	assert.Equal(t, 45*time.Second, single.MaxDuration,
		"explicit place ids get the roomier per-lead budget")
	assert.True(t, single.SearchWebsite && single.ScrapeSocial && single.ScrapeWebsite)
}
