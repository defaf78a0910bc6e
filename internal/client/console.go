package client

import (
	"fmt"
	"io"
	"sync"

	"scanlink/internal/session"
	"scanlink/internal/transport"
)

// ConsoleUI renders the session to a terminal. It is the UI used by the
// station and companion subcommands.
type ConsoleUI struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleUI writes renders to out.
func NewConsoleUI(out io.Writer) *ConsoleUI {
	return &ConsoleUI{out: out}
}

func (u *ConsoleUI) RenderArticle(a session.Article, img ImageRef) {
	u.mu.Lock()
	defer u.mu.Unlock()

	name := a.Name
	if name == "" {
		name = "(unnamed)"
	}
	shop := "-"
	if a.ShopID != nil {
		shop = fmt.Sprintf("%d", *a.ShopID)
	}
	photo := "none"
	switch {
	case img.Inline != "":
		photo = fmt.Sprintf("inline (%d bytes base64)", len(img.Inline))
	case a.ImageUploaded:
		photo = img.URL
	}
	fmt.Fprintf(u.out, "article  %s  %s  qty=%g  shop=%s  photo=%s\n", a.EAN, name, a.Qty, shop, photo)
}

func (u *ConsoleUI) RenderLogin(l session.LoginState) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if l.CaptureMode() {
		fmt.Fprintf(u.out, "mode     capture (logged in: %s, id %d)\n", l.UserName, *l.UserID)
	} else {
		fmt.Fprintln(u.out, "mode     scan-only (no operator logged in)")
	}
}

func (u *ConsoleUI) RenderConnection(s transport.State) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "relay    %s\n", s)
}

func (u *ConsoleUI) ShowStatus(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "status   %s\n", msg)
}
