package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scanlink/internal/imaging"
	"scanlink/internal/lookup"
	"scanlink/internal/protocol"
	"scanlink/internal/session"
	"scanlink/internal/transport"
)

// AnnounceScan is the capture-station action: look the code up, make it the
// session's current article, and broadcast it to every companion.
func (rt *Runtime) AnnounceScan(ctx context.Context, ean string) error {
	ean = strings.TrimSpace(ean)
	if ean == "" {
		return lookup.ErrEmptyEAN
	}

	article := rt.resolver.Resolve(ctx, ean, "")
	rt.store.SetCurrentArticle(article.EAN, article.Name)
	rt.store.ApplyLookup(article)
	rt.renderArticle("")

	frame, err := protocol.Encode(protocol.SetArticle{EAN: article.EAN, Name: article.Name})
	if err != nil {
		return err
	}
	if err := rt.conn.Send(frame); err != nil {
		// Non-fatal; the relay replays on the next open anyway.
		slog.Warn("set_article not sent", "ean", ean, "err", err)
	}
	return nil
}

// CapturePhoto processes an image file into the capture payload and sends it
// as an upload_image frame. While the transport is down the frame is staged
// in the single-slot buffer and goes out on the next open.
func (rt *Runtime) CapturePhoto(path string) error {
	article := rt.store.Article()
	if article.EAN == "" {
		return lookup.ErrEmptyEAN
	}

	payload, err := imaging.ProcessFile(path)
	if err != nil {
		return fmt.Errorf("failed to process photo: %w", err)
	}
	if payload == "" {
		return lookup.ErrEmptyPayload
	}

	frame, err := protocol.Encode(protocol.UploadImage{EAN: article.EAN, ImageBase64: payload})
	if err != nil {
		return err
	}

	if err := rt.conn.Send(frame); err != nil {
		rt.buf.Stage(article.EAN, frame)
		slog.Info("Transport down, photo staged for next open", "ean", article.EAN)
		return nil
	}
	slog.Info("Photo sent", "ean", article.EAN, "payload_bytes", len(payload))
	return nil
}

// SaveName pushes an edited article name through the relay so every client
// picks it up.
func (rt *Runtime) SaveName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return lookup.ErrEmptyName
	}
	article := rt.store.Article()
	if article.EAN == "" {
		return lookup.ErrEmptyEAN
	}

	frame, err := protocol.Encode(protocol.SaveName{EAN: article.EAN, Name: name})
	if err != nil {
		return err
	}
	if err := rt.conn.Send(frame); err != nil {
		return fmt.Errorf("name not sent: %w", err)
	}
	rt.store.SetName(name)
	return nil
}

// SaveItem validates the edited article locally and persists it via the
// product store API. Server rejections come back verbatim and are not
// retried.
func (rt *Runtime) SaveItem(ctx context.Context, name string, qty float64, shopID *int64) error {
	article := rt.store.Article()
	name = strings.TrimSpace(name)
	if name == "" {
		name = article.Name
	}
	if err := lookup.ValidateSave(article.EAN, name, qty); err != nil {
		return err
	}
	if !rt.store.Login().CaptureMode() {
		return fmt.Errorf("no operator logged in")
	}

	err := rt.api.SaveItem(ctx, lookup.SaveItemRequest{
		EAN:    article.EAN,
		Name:   name,
		Qty:    qty,
		ShopID: shopID,
	})
	if err != nil {
		return err
	}

	rt.store.ApplyLookup(session.Article{
		EAN:           article.EAN,
		Name:          name,
		Qty:           qty,
		ShopID:        shopID,
		ImageUploaded: article.ImageUploaded,
	})
	return nil
}

// Connected reports whether the transport is currently open.
func (rt *Runtime) Connected() bool {
	return rt.conn.State() == transport.StateOpen
}
