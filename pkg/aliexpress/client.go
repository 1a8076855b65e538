// Package aliexpress is a thin client for the AliExpress affiliate product
// search API.
package aliexpress

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dropmart/dropmart-backend/pkg/config"
)

const (
	methodProductQuery = "aliexpress.affiliate.product.query"
	defaultPageSize    = 20
	maxPageSize        = 50
)

// the API expects request timestamps in GMT+8.
var apiZone = time.FixedZone("GMT+8", 8*60*60)

// Product is one affiliate search hit.
type Product struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Currency      string          `json:"currency"`
	ImageURL      string          `json:"image_url"`
	DetailURL     string          `json:"detail_url"`
	Category      string          `json:"category"`
	Rating        decimal.Decimal `json:"rating"`
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// Client signs and sends affiliate API requests.
type Client struct {
	appKey     string
	appSecret  string
	trackingID string
	baseURL    string
	http       *http.Client
	now        func() time.Time
}

// NewClient validates credentials and builds a client with the configured timeout.
func NewClient(cfg config.AliExpressConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("aliexpress app key and secret are required")
	}
	if strings.TrimSpace(cfg.TrackingID) == "" {
		return nil, fmt.Errorf("aliexpress tracking id is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid aliexpress base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		trackingID: cfg.TrackingID,
		baseURL:    cfg.BaseURL,
		http:       &http.Client{Timeout: timeout},
		now:        time.Now,
	}, nil
}

// Search runs a keyword product query. An empty keyword returns no results
// without calling the API.
func (c *Client) Search(ctx context.Context, keywords string, page, pageSize int) (SearchResult, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return SearchResult{Products: []Product{}}, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := map[string]string{
		"app_key":         c.appKey,
		"method":          methodProductQuery,
		"sign_method":     "md5",
		"timestamp":       c.now().In(apiZone).Format("2006-01-02 15:04:05"),
		"v":               "2.0",
		"format":          "json",
		"keywords":        keywords,
		"page_no":         strconv.Itoa(page),
		"page_size":       strconv.Itoa(pageSize),
		"target_currency": "USD",
		"target_language": "EN",
		"tracking_id":     c.trackingID,
	}
	params["sign"] = Sign(params, c.appSecret)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return SearchResult{}, fmt.Errorf("build aliexpress request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("aliexpress request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return SearchResult{}, fmt.Errorf("read aliexpress response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return SearchResult{}, fmt.Errorf("aliexpress api error: status %d", resp.StatusCode)
	}
	return decodeSearch(body)
}

// Sign computes the md5 request signature: secret, then every key/value
// pair in key order, then secret again, hashed and upper-cased.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(secret)
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(params[k])
	}
	buf.WriteString(secret)

	sum := md5.Sum(buf.Bytes())
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

type searchEnvelope struct {
	Response struct {
		RespResult struct {
			RespCode int    `json:"resp_code"`
			RespMsg  string `json:"resp_msg"`
			Result   *struct {
				TotalRecordCount int `json:"total_record_count"`
				Products         struct {
					Product []rawProduct `json:"product"`
				} `json:"products"`
			} `json:"result"`
		} `json:"resp_result"`
	} `json:"aliexpress_affiliate_product_query_response"`
	ErrorResponse *struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error_response"`
}

type rawProduct struct {
	ProductID           flexString `json:"product_id"`
	ProductTitle        flexString `json:"product_title"`
	TargetSalePrice     flexString `json:"target_sale_price"`
	TargetOriginalPrice flexString `json:"target_original_price"`
	SalePriceCurrency   flexString `json:"target_sale_price_currency"`
	MainImageURL        flexString `json:"product_main_image_url"`
	DetailURL           flexString `json:"product_detail_url"`
	FirstLevelCategory  flexString `json:"first_level_category_name"`
	EvaluateRate        flexString `json:"evaluate_rate"`
}

// flexString accepts JSON strings and numbers; the API is inconsistent.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

func decodeSearch(body []byte) (SearchResult, error) {
	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return SearchResult{}, fmt.Errorf("decode aliexpress response: %w", err)
	}
	if env.ErrorResponse != nil {
		return SearchResult{}, fmt.Errorf("aliexpress api error %s: %s", env.ErrorResponse.Code, env.ErrorResponse.Msg)
	}
	result := env.Response.RespResult.Result
	if result == nil {
		return SearchResult{Products: []Product{}}, nil
	}

	out := SearchResult{Total: result.TotalRecordCount, Products: make([]Product, 0, len(result.Products.Product))}
	for _, p := range result.Products.Product {
		image := string(p.MainImageURL)
		if strings.HasPrefix(image, "//") {
			image = "https:" + image
		}
		currency := string(p.SalePriceCurrency)
		if currency == "" {
			currency = "USD"
		}
		rating := parseAmount(strings.TrimSuffix(string(p.EvaluateRate), "%")).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(5)).Round(2)
		out.Products = append(out.Products, Product{
			ID:            string(p.ProductID),
			Title:         string(p.ProductTitle),
			SalePrice:     parseAmount(string(p.TargetSalePrice)),
			OriginalPrice: parseAmount(string(p.TargetOriginalPrice)),
			Currency:      currency,
			ImageURL:      image,
			DetailURL:     string(p.DetailURL),
			Category:      string(p.FirstLevelCategory),
			Rating:        rating,
		})
	}
	return out, nil
}

// parseAmount reads "1,234.50" style prices; unparseable input is zero.
func parseAmount(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
