package aliexpress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/config"
)

const searchFixture = `{
  "aliexpress_affiliate_product_query_response": {
    "resp_result": {
      "resp_code": 200,
      "result": {
        "total_record_count": 42,
        "products": {"product": [
          {
            "product_id": 1005001234,
            "product_title": "Wireless Earbuds",
            "target_sale_price": "1,019.99",
            "target_original_price": "1,299.00",
            "target_sale_price_currency": "USD",
            "product_main_image_url": "//ae01.example.com/a.jpg",
            "product_detail_url": "https://aliexpress.example.com/item/1005001234.html",
            "first_level_category_name": "Consumer Electronics",
            "evaluate_rate": "94.0%"
          },
          {"product_id": "77", "product_title": "Mystery", "target_sale_price": "n/a"}
        ]}
      }
    }
  }
}`

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.AliExpressConfig{
		AppKey:     "key",
		AppSecret:  "secret",
		TrackingID: "track",
		BaseURL:    baseURL,
		Timeout:    time.Second,
	})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestSignIsOrderIndependentAndExcludesSign(t *testing.T) {
	a := Sign(map[string]string{"b": "2", "a": "1"}, "s")
	b := Sign(map[string]string{"a": "1", "b": "2", "sign": "ignored"}, "s")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.Equal(t, a, Sign(map[string]string{"a": "1", "b": "2"}, "s"))
	assert.NotEqual(t, a, Sign(map[string]string{"a": "1", "b": "2"}, "t"))
}

func TestSearchSignsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, methodProductQuery, q.Get("method"))
		assert.Equal(t, "earbuds", q.Get("keywords"))
		assert.Equal(t, "2026-05-01 08:00:00", q.Get("timestamp"))
		params := map[string]string{}
		for k := range q {
			params[k] = q.Get(k)
		}
		assert.Equal(t, Sign(params, "secret"), q.Get("sign"))
		_, _ = w.Write([]byte(searchFixture))
	}))
	defer srv.Close()

	res, err := testClient(t, srv.URL).Search(context.Background(), " earbuds ", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 42, res.Total)
	require.Len(t, res.Products, 2)

	first := res.Products[0]
	assert.Equal(t, "1005001234", first.ID)
	assert.True(t, first.SalePrice.Equal(decimal.RequireFromString("1019.99")))
	assert.Equal(t, "https://ae01.example.com/a.jpg", first.ImageURL)
	assert.True(t, first.Rating.Equal(decimal.RequireFromString("4.7")))

	assert.True(t, res.Products[1].SalePrice.IsZero())
	assert.Equal(t, "USD", res.Products[1].Currency)
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keywords") == "boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"error_response":{"code":"isv.invalid","msg":"bad sign"}}`))
	}))
	defer srv.Close()
	c := testClient(t, srv.URL)

	_, err := c.Search(context.Background(), "boom", 1, 10)
	assert.ErrorContains(t, err, "status 502")

	_, err = c.Search(context.Background(), "anything", 1, 10)
	assert.ErrorContains(t, err, "bad sign")

	empty, err := c.Search(context.Background(), "  ", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Products)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.AliExpressConfig{BaseURL: "http://x"})
	assert.Error(t, err)
	_, err = NewClient(config.AliExpressConfig{AppKey: "k", AppSecret: "s", BaseURL: "http://x"})
	assert.Error(t, err)
}
