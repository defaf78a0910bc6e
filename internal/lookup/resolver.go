package lookup

import (
	"context"
	"log/slog"

	"scanlink/internal/session"
)

// Resolver reconciles a push-delivered article stub (EAN plus name) with the
// richer record the product store holds.
type Resolver struct {
	client *Client
}

// NewResolver wraps a product store client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve enriches a scan. The store's name wins when non-empty, otherwise
// the pushed name survives; a missing or non-positive quantity defaults to 1;
// the shop is adopted only when the store has one. A failed request degrades
// to the pushed stub instead of surfacing an error: the session store always
// gets an article, possibly an incomplete one.
func (r *Resolver) Resolve(ctx context.Context, ean, pushedName string) session.Article {
	degraded := session.Article{EAN: ean, Name: pushedName, Qty: 1}

	product, err := r.client.LookupEAN(ctx, ean)
	if err != nil {
		slog.Warn("EAN lookup failed, using pushed stub", "ean", ean, "err", err)
		return degraded
	}

	article := session.Article{EAN: ean, Qty: 1}
	if product.EAN != "" {
		article.EAN = product.EAN
	}
	if product.Name != "" {
		article.Name = product.Name
	} else {
		article.Name = pushedName
	}
	if product.Qty > 0 {
		article.Qty = product.Qty
	}
	if product.ShopID != nil {
		article.ShopID = product.ShopID
	}
	article.ImageUploaded = product.ImagePath != ""

	return article
}
