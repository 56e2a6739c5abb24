package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	pkghttp "CryptoRNN/pkg/http"
)

// HTTPSource downloads {baseURL}/{ratio}.csv.
type HTTPSource struct {
	client  *pkghttp.Client
	baseURL string
}

// NewHTTPSource creates a CandleSource that fetches CSVs over HTTP.
func NewHTTPSource(client *pkghttp.Client, baseURL string) domrepo.CandleSource {
	return &HTTPSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *HTTPSource) Load(ctx context.Context, ratio string) ([]models.Candle, error) {
	u := s.baseURL + "/" + url.PathEscape(ratio) + ".csv"
	body, err := s.client.Open(ctx, &pkghttp.RequestOptions{
		URL:     u,
		Headers: map[string]string{"Accept": "text/csv"},
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	defer body.Close()
	return ParseCandles(ctx, body, ratio, u)
}
