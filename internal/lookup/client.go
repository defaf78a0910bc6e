// Package lookup talks to the product store's HTTP API and reconciles its
// answers with the bare article stubs delivered over the push channel.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client is a product store API client.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Product is one record from the product store.
type Product struct {
	EAN       string  `json:"ean"`
	Name      string  `json:"name"`
	ShopID    *int64  `json:"shop_id"`
	Qty       float64 `json:"qty"`
	ImagePath string  `json:"image_path,omitempty"`
	Source    string  `json:"source"`
}

// Shop is one entry of the shop list.
type Shop struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CurrentUser is the polled login snapshot. A nil UserID means logged out.
type CurrentUser struct {
	UserID         *int64 `json:"user_id"`
	UserName       string `json:"user_name"`
	TimeoutMinutes int    `json:"timeout_minutes"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

// SaveItemRequest is the body of POST /api/save_item.
type SaveItemRequest struct {
	EAN    string  `json:"ean"`
	Name   string  `json:"name"`
	ShopID *int64  `json:"shop_id"`
	Qty    float64 `json:"qty"`
}

type ackResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// LookupEAN fetches the product record for one scan code.
func (c *Client) LookupEAN(ctx context.Context, ean string) (Product, error) {
	u := fmt.Sprintf("%s/api/lookup_ean?ean=%s", c.BaseURL, url.QueryEscape(ean))

	var product Product
	if err := c.getJSON(ctx, u, &product); err != nil {
		return Product{}, err
	}
	return product, nil
}

// Shops fetches the shop list.
func (c *Client) Shops(ctx context.Context) ([]Shop, error) {
	var resp struct {
		Shops []Shop `json:"shops"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/api/shops", &resp); err != nil {
		return nil, err
	}
	return resp.Shops, nil
}

// CurrentUser fetches the login snapshot. This is the pull fallback for the
// user_login/user_logout push events.
func (c *Client) CurrentUser(ctx context.Context) (CurrentUser, error) {
	var user CurrentUser
	if err := c.getJSON(ctx, c.BaseURL+"/api/current_user", &user); err != nil {
		return CurrentUser{}, err
	}
	return user, nil
}

// SaveItem persists an edited article. A server-side rejection is surfaced
// verbatim as the server's message; the call is not retried.
func (c *Client) SaveItem(ctx context.Context, item SaveItemRequest) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode save_item request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/save_item", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create save_item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doAck(req)
}

// Logout asks the product store to end the current operator session.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	return c.doAck(req)
}

// UploadImage pushes a JPEG to the HTTP upload endpoint as a multipart form.
// This is the out-of-band alternative to the upload_image socket frame.
func (c *Client) UploadImage(ctx context.Context, ean string, jpegData []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", ean+".jpg")
	if err != nil {
		return fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(jpegData); err != nil {
		return fmt.Errorf("failed to write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart form: %w", err)
	}

	u := c.BaseURL + "/upload_image/" + url.PathEscape(ean)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doAck(req)
}

// ImageURL builds the fetch URL for a stored product photo. Every call
// appends a fresh cache-busting parameter so a just-replaced image is never
// served stale from a cache.
func (c *Client) ImageURL(ean string) string {
	return fmt.Sprintf("%s/image/%s?t=%d", c.BaseURL, url.PathEscape(ean), time.Now().UnixNano())
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("product store returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doAck(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var ack ackResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !ack.OK {
		if ack.Message == "" {
			ack.Message = fmt.Sprintf("server rejected request (status %d)", resp.StatusCode)
		}
		return fmt.Errorf("%s", ack.Message)
	}
	return nil
}
