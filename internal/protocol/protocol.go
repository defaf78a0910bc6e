// Package protocol defines the wire contract between the capture station,
// the relay, and companion clients: one JSON object per websocket frame,
// tagged with a "type" field.
package protocol

import (
	"encoding/json"
	"errors"
)

// Frame tags. The relay broadcasts the first group; clients send the second.
const (
	TypeCurrentArticle = "current_article"
	TypeImageUpdated   = "image_updated"
	TypeUserLogin      = "user_login"
	TypeUserLogout     = "user_logout"
	TypeError          = "error"

	TypeRequestCurrentArticle = "request_current_article"
	TypeSetArticle            = "set_article"
	TypeUploadImage           = "upload_image"
	TypeImageUploaded         = "image_uploaded"
	TypeSaveName              = "save_name"
)

// Message is the closed union of every frame this protocol knows.
type Message interface {
	isMessage()
}

// CurrentArticle announces the article the session is currently on.
// ImageBase64 is optional; when absent, clients fetch the image by EAN.
type CurrentArticle struct {
	EAN         string `json:"ean"`
	Name        string `json:"name"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// ImageUpdated tells clients the stored photo for an EAN changed.
type ImageUpdated struct {
	EAN         string `json:"ean"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// UserLogin switches all clients into capture mode.
type UserLogin struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// UserLogout switches all clients back into scan-only mode.
type UserLogout struct {
	PrevUserID   *int64 `json:"prev_user_id,omitempty"`
	PrevUserName string `json:"prev_user_name,omitempty"`
}

// Error is the relay's reply to an invalid client frame.
type Error struct {
	Message string `json:"message"`
}

// RequestCurrentArticle asks the relay to replay the current article.
// Idempotent and side-effect-free on the relay.
type RequestCurrentArticle struct{}

// SetArticle is the capture station announcing a new scan.
type SetArticle struct {
	EAN  string `json:"ean"`
	Name string `json:"name"`
}

// UploadImage carries a captured photo as a raw base64 JPEG payload.
type UploadImage struct {
	EAN         string `json:"ean"`
	ImageBase64 string `json:"image_base64"`
}

// ImageUploaded notifies the relay that a photo for an EAN was stored
// out of band (e.g. via the HTTP upload endpoint).
type ImageUploaded struct {
	EAN string `json:"ean"`
}

// SaveName asks the relay to persist an edited article name.
type SaveName struct {
	EAN  string `json:"ean"`
	Name string `json:"name"`
}

func (CurrentArticle) isMessage()        {}
func (ImageUpdated) isMessage()          {}
func (UserLogin) isMessage()             {}
func (UserLogout) isMessage()            {}
func (Error) isMessage()                 {}
func (RequestCurrentArticle) isMessage() {}
func (SetArticle) isMessage()            {}
func (UploadImage) isMessage()           {}
func (ImageUploaded) isMessage()         {}
func (SaveName) isMessage()              {}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses a raw frame into its typed variant. Malformed JSON, a missing
// tag, or an unknown tag all return ok=false; such frames are dropped, never
// surfaced as errors.
func Decode(raw []byte) (Message, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}

	switch env.Type {
	case TypeCurrentArticle:
		return decodeAs[CurrentArticle](raw)
	case TypeImageUpdated:
		return decodeAs[ImageUpdated](raw)
	case TypeUserLogin:
		return decodeAs[UserLogin](raw)
	case TypeUserLogout:
		return decodeAs[UserLogout](raw)
	case TypeError:
		return decodeAs[Error](raw)
	case TypeRequestCurrentArticle:
		return RequestCurrentArticle{}, true
	case TypeSetArticle:
		return decodeAs[SetArticle](raw)
	case TypeUploadImage:
		return decodeAs[UploadImage](raw)
	case TypeImageUploaded:
		return decodeAs[ImageUploaded](raw)
	case TypeSaveName:
		return decodeAs[SaveName](raw)
	default:
		return nil, false
	}
}

func decodeAs[T Message](raw []byte) (Message, bool) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}
	return msg, true
}

// Encode serializes a message into a frame, injecting the matching tag.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case CurrentArticle:
		return json.Marshal(struct {
			Type string `json:"type"`
			CurrentArticle
		}{TypeCurrentArticle, v})
	case ImageUpdated:
		return json.Marshal(struct {
			Type string `json:"type"`
			ImageUpdated
		}{TypeImageUpdated, v})
	case UserLogin:
		return json.Marshal(struct {
			Type string `json:"type"`
			UserLogin
		}{TypeUserLogin, v})
	case UserLogout:
		return json.Marshal(struct {
			Type string `json:"type"`
			UserLogout
		}{TypeUserLogout, v})
	case Error:
		return json.Marshal(struct {
			Type string `json:"type"`
			Error
		}{TypeError, v})
	case RequestCurrentArticle:
		return json.Marshal(envelope{Type: TypeRequestCurrentArticle})
	case SetArticle:
		return json.Marshal(struct {
			Type string `json:"type"`
			SetArticle
		}{TypeSetArticle, v})
	case UploadImage:
		return json.Marshal(struct {
			Type string `json:"type"`
			UploadImage
		}{TypeUploadImage, v})
	case ImageUploaded:
		return json.Marshal(struct {
			Type string `json:"type"`
			ImageUploaded
		}{TypeImageUploaded, v})
	case SaveName:
		return json.Marshal(struct {
			Type string `json:"type"`
			SaveName
		}{TypeSaveName, v})
	default:
		// The union is closed; reaching this means a variant was added
		// without an Encode arm.
		return nil, errors.New("protocol: unknown message variant")
	}
}
