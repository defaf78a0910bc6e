package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func resolverFor(t *testing.T, body string) *Resolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return NewResolver(NewClient(srv.URL))
}

func TestResolveMergesStoreRecord(t *testing.T) {
	r := resolverFor(t, `{"ean":"4001","name":"","qty":3,"shop_id":7,"source":"local"}`)

	article := r.Resolve(context.Background(), "4001", "Milk")

	if article.Qty != 3 {
		t.Errorf("Expected qty 3 from the store, got %g", article.Qty)
	}
	if article.ShopID == nil || *article.ShopID != 7 {
		t.Errorf("Expected shop 7 from the store, got %v", article.ShopID)
	}
	if article.Name != "Milk" {
		t.Errorf("Expected the pushed name to survive an empty store name, got %q", article.Name)
	}
}

func TestResolveStoreNameWins(t *testing.T) {
	r := resolverFor(t, `{"ean":"4001","name":"Whole Milk 1l","qty":1,"source":"local"}`)

	article := r.Resolve(context.Background(), "4001", "Milk")
	if article.Name != "Whole Milk 1l" {
		t.Errorf("Expected the store name to win, got %q", article.Name)
	}
}

func TestResolveDefaultsNonPositiveQty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero qty", `{"ean":"4001","name":"Milk","qty":0,"source":"local"}`},
		{"negative qty", `{"ean":"4001","name":"Milk","qty":-2,"source":"local"}`},
		{"missing qty", `{"ean":"4001","name":"Milk","source":"local"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolverFor(t, tt.body)
			article := r.Resolve(context.Background(), "4001", "")
			if article.Qty != 1 {
				t.Errorf("Expected qty default 1, got %g", article.Qty)
			}
		})
	}
}

func TestResolveDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(NewClient(srv.URL))
	article := r.Resolve(context.Background(), "4001", "Milk")

	if article.EAN != "4001" || article.Name != "Milk" || article.Qty != 1 {
		t.Errorf("Expected the pushed stub on failure, got %+v", article)
	}
}

func TestResolveUnknownEAN(t *testing.T) {
	r := resolverFor(t, `{"ean":"4001","name":"","qty":0,"shop_id":null,"source":"none"}`)

	article := r.Resolve(context.Background(), "4001", "")
	if article.EAN != "4001" || article.Name != "" || article.Qty != 1 || article.ShopID != nil {
		t.Errorf("Expected an empty default article, got %+v", article)
	}
}
