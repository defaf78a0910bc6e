package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Message
		ok   bool
	}{
		{
			name: "current article",
			raw:  `{"type":"current_article","ean":"4001","name":"Milk"}`,
			want: CurrentArticle{EAN: "4001", Name: "Milk"},
			ok:   true,
		},
		{
			name: "current article with inline image",
			raw:  `{"type":"current_article","ean":"4001","name":"Milk","image_base64":"aGk="}`,
			want: CurrentArticle{EAN: "4001", Name: "Milk", ImageBase64: "aGk="},
			ok:   true,
		},
		{
			name: "image updated",
			raw:  `{"type":"image_updated","ean":"4001","timestamp":1700000000}`,
			want: ImageUpdated{EAN: "4001", Timestamp: 1700000000},
			ok:   true,
		},
		{
			name: "user login",
			raw:  `{"type":"user_login","user_id":7,"user_name":"anna"}`,
			want: UserLogin{UserID: 7, UserName: "anna"},
			ok:   true,
		},
		{
			name: "user logout",
			raw:  `{"type":"user_logout"}`,
			want: UserLogout{},
			ok:   true,
		},
		{
			name: "request current article",
			raw:  `{"type":"request_current_article"}`,
			want: RequestCurrentArticle{},
			ok:   true,
		},
		{
			name: "set article",
			raw:  `{"type":"set_article","ean":"4001","name":"Milk"}`,
			want: SetArticle{EAN: "4001", Name: "Milk"},
			ok:   true,
		},
		{
			name: "save name",
			raw:  `{"type":"save_name","ean":"4001","name":"Whole Milk"}`,
			want: SaveName{EAN: "4001", Name: "Whole Milk"},
			ok:   true,
		},
		{
			name: "error frame",
			raw:  `{"type":"error","message":"ean is required"}`,
			want: Error{Message: "ean is required"},
			ok:   true,
		},
		{
			name: "unknown tag ignored",
			raw:  `{"type":"heartbeat"}`,
			ok:   false,
		},
		{
			name: "missing tag ignored",
			raw:  `{"ean":"4001"}`,
			ok:   false,
		},
		{
			name: "malformed json ignored",
			raw:  `{"type":"current_article",`,
			ok:   false,
		},
		{
			name: "non-object frame ignored",
			raw:  `"current_article"`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("Decode ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if got != tt.want {
				t.Errorf("Decode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeInjectsTag(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		tag  string
	}{
		{"request current article", RequestCurrentArticle{}, TypeRequestCurrentArticle},
		{"set article", SetArticle{EAN: "4001", Name: "Milk"}, TypeSetArticle},
		{"upload image", UploadImage{EAN: "4001", ImageBase64: "aGk="}, TypeUploadImage},
		{"image uploaded", ImageUploaded{EAN: "4001"}, TypeImageUploaded},
		{"save name", SaveName{EAN: "4001", Name: "Milk"}, TypeSaveName},
		{"current article", CurrentArticle{EAN: "4001", Name: "Milk"}, TypeCurrentArticle},
		{"user logout", UserLogout{}, TypeUserLogout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			var env struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("Encoded frame is not valid JSON: %v", err)
			}
			if env.Type != tt.tag {
				t.Errorf("Expected tag %q, got %q", tt.tag, env.Type)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := SetArticle{EAN: "4001", Name: "Milk"}

	frame, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, ok := Decode(frame)
	if !ok {
		t.Fatal("Decode rejected an encoded frame")
	}
	if decoded != original {
		t.Errorf("Round trip changed the message: %#v", decoded)
	}
}

func TestEncodeOmitsEmptyImagePayload(t *testing.T) {
	frame, err := Encode(CurrentArticle{EAN: "4001", Name: "Milk"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(frame, &fields); err != nil {
		t.Fatalf("Encoded frame is not valid JSON: %v", err)
	}
	if _, present := fields["image_base64"]; present {
		t.Error("Expected image_base64 to be omitted when empty")
	}
}
