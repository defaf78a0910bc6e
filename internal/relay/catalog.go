package relay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scanlink/internal/config"
	"scanlink/internal/imaging"
)

// Item is one product record held by the relay.
type Item struct {
	EAN          string
	Name         string
	Qty          float64
	ShopID       *int64
	ImagePath    string
	LastUserID   *int64
	LastChangeAt time.Time
}

// Catalog is the relay's product store: an in-memory record map plus a photo
// directory on disk. Records do not survive a restart; photos do.
type Catalog struct {
	mu       sync.RWMutex
	items    map[string]Item
	shops    []config.Shop
	imageDir string
}

// NewCatalog creates the catalog and ensures the image directory exists.
func NewCatalog(imageDir string, shops []config.Shop) (*Catalog, error) {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Catalog{
		items:    make(map[string]Item),
		shops:    shops,
		imageDir: imageDir,
	}, nil
}

// Lookup returns the record for an EAN.
func (c *Catalog) Lookup(ean string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[ean]
	if !ok {
		// A photo may exist from a previous run even without a record.
		if path := c.imagePathLocked(ean); path != "" {
			return Item{EAN: ean, ImagePath: path}, true
		}
	}
	return item, ok
}

// Save upserts a record wholesale, stamping the change time.
func (c *Catalog) Save(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.items[item.EAN]
	if ok {
		if item.Name == "" {
			item.Name = existing.Name
		}
		item.ImagePath = existing.ImagePath
	}
	item.LastChangeAt = time.Now()
	c.items[item.EAN] = item
}

// UpdateName overwrites only the name, creating the record when absent.
func (c *Catalog) UpdateName(ean, name string, userID *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := c.items[ean]
	item.EAN = ean
	item.Name = name
	item.LastUserID = userID
	item.LastChangeAt = time.Now()
	c.items[ean] = item
}

// Shops returns the configured shop list.
func (c *Catalog) Shops() []config.Shop {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shops
}

// SaveImage decodes a base64 payload, re-encodes it with the store profile
// and writes it as <ean>.jpg. The record's image path is updated, creating
// the record when absent.
func (c *Catalog) SaveImage(ean, imageBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode image payload: %w", err)
	}
	return c.SaveImageBytes(ean, raw)
}

// SaveImageBytes is SaveImage for already-decoded image data (HTTP uploads).
func (c *Catalog) SaveImageBytes(ean string, raw []byte) (string, error) {
	jpegData, err := imaging.Reencode(bytes.NewReader(raw), imaging.StoreMaxEdge, imaging.StoreQuality)
	if err != nil {
		return "", err
	}

	path := filepath.Join(c.imageDir, ean+".jpg")
	if err := os.WriteFile(path, jpegData, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	c.mu.Lock()
	item := c.items[ean]
	item.EAN = ean
	item.ImagePath = path
	item.LastChangeAt = time.Now()
	c.items[ean] = item
	c.mu.Unlock()

	return path, nil
}

// ImagePath returns the stored photo path for an EAN, or "".
func (c *Catalog) ImagePath(ean string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if item, ok := c.items[ean]; ok && item.ImagePath != "" {
		return item.ImagePath
	}
	return c.imagePathLocked(ean)
}

func (c *Catalog) imagePathLocked(ean string) string {
	path := filepath.Join(c.imageDir, ean+".jpg")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
