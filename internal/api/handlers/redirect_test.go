package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/storefront-proxy/internal/api/handlers"
	"github.com/donaldgifford/storefront-proxy/pkg/affiliate"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

func TestGo(t *testing.T) {
	t.Parallel()

	allowed := []string{"mercadolivre.com.br", "mercadolibre.com"}

	tests := []struct {
		name         string
		query        string
		recordErr    error
		wantStatus   int
		wantLocation string
		wantItemID   string
	}{
		{
			name:         "permalink gets tracking",
			query:        "?url=http%3A%2F%2Fproduto.mercadolivre.com.br%2FMLB-1&item_id=MLB1",
			wantStatus:   http.StatusFound,
			wantLocation: "https://produto.mercadolivre.com.br/MLB-1?matt_tool=aff-1&matt_word=store",
			wantItemID:   "MLB1",
		},
		{
			name:         "bare allowed host",
			query:        "?url=https%3A%2F%2Fmercadolibre.com%2Fx",
			wantStatus:   http.StatusFound,
			wantLocation: "https://mercadolibre.com/x?matt_tool=aff-1&matt_word=store",
		},
		{
			name:         "search term",
			query:        "?q=Smart%20TV%2050",
			wantStatus:   http.StatusFound,
			wantLocation: "https://lista.mercadolivre.com.br/smart-tv-50?matt_tool=aff-1&matt_word=store",
		},
		{
			name:         "click store failure still redirects",
			query:        "?q=tv",
			recordErr:    errors.New("db down"),
			wantStatus:   http.StatusFound,
			wantLocation: "https://lista.mercadolivre.com.br/tv?matt_tool=aff-1&matt_word=store",
		},
		{
			name:       "foreign host",
			query:      "?url=https%3A%2F%2Fevil.example%2Fmercadolivre.com.br",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "lookalike host",
			query:      "?url=https%3A%2F%2Fnotmercadolivre.com.br%2Fx",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-http scheme",
			query:      "?url=javascript%3Aalert(1)",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "nothing to redirect to",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &mockStore{}
			if tt.wantStatus == http.StatusFound {
				st.On("RecordClick", mock.Anything, mock.MatchedBy(func(e *domain.ClickEvent) bool {
					return e.TargetURL == tt.wantLocation && e.ItemID == tt.wantItemID
				})).Return(tt.recordErr).Once()
			}

			h := handlers.NewRedirectHandler(affiliate.New("aff-1", "store"), allowed, st, nil)

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/go"+tt.query, http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, h.Go(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			if tt.wantStatus == http.StatusBadRequest {
				assert.Contains(t, rec.Body.String(), `"ok":false`)
			}
			st.AssertExpectations(t)
		})
	}
}
