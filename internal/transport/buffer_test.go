package transport

import (
	"bytes"
	"testing"
)

func TestStageReplacesPendingPayload(t *testing.T) {
	var buf UploadBuffer

	buf.Stage("4001", []byte("first"))
	buf.Stage("4001", []byte("second"))

	ean, frame, ok := buf.Take()
	if !ok {
		t.Fatal("Expected a staged payload")
	}
	if ean != "4001" {
		t.Errorf("Expected ean 4001, got %s", ean)
	}
	if !bytes.Equal(frame, []byte("second")) {
		t.Errorf("Expected the second payload to survive, got %q", frame)
	}

	if _, _, ok := buf.Take(); ok {
		t.Error("Expected the buffer to be empty after Take")
	}
}

func TestStageReplacesAcrossEANs(t *testing.T) {
	var buf UploadBuffer

	buf.Stage("4001", []byte("milk photo"))
	buf.Stage("4002", []byte("butter photo"))

	ean, frame, ok := buf.Take()
	if !ok {
		t.Fatal("Expected a staged payload")
	}
	if ean != "4002" || !bytes.Equal(frame, []byte("butter photo")) {
		t.Errorf("Expected only the newest capture to survive, got %s %q", ean, frame)
	}
}

func TestPendingReportsState(t *testing.T) {
	var buf UploadBuffer

	if _, ok := buf.Pending(); ok {
		t.Error("Expected empty buffer initially")
	}

	buf.Stage("4001", []byte("photo"))
	ean, ok := buf.Pending()
	if !ok || ean != "4001" {
		t.Errorf("Expected pending payload for 4001, got %s %v", ean, ok)
	}
}
