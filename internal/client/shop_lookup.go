package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
)

var ErrShopNotFound = errors.New("shop not found")

// ShopLookup resolves the shop owned by a user, so a direct room id can be
// built before connecting.
type ShopLookup interface {
	ShopByOwner(ctx context.Context, userID string) (*model.Shop, error)
}

// HTTPShopLookup asks the app server's shop endpoint.
type HTTPShopLookup struct {
	baseURL string
	client  *http.Client
}

func NewHTTPShopLookup(baseURL string) *HTTPShopLookup {
	return &HTTPShopLookup{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPShopLookup) ShopByOwner(ctx context.Context, userID string) (*model.Shop, error) {
	endpoint := l.baseURL + "/cf/api/shops/by-owner/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shop lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrShopNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("shop lookup failed: status %d", resp.StatusCode)
	}

	var body struct {
		ResponseBody model.Shop `json:"ResponseBody"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("shop lookup failed: %w", err)
	}
	return &body.ResponseBody, nil
}
