package gcs

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/receipts/a.jpg", "bucket", "receipts/a.jpg", false},
		{"gs://bucket/a", "bucket", "a", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"http://bucket/a.jpg", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI(%q) = %q/%q, want %q/%q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestImageMIMEType(t *testing.T) {
	tests := []struct {
		object string
		want   string
	}{
		{"receipts/a.png", "image/png"},
		{"receipts/a.jpg", "image/jpeg"},
		{"receipts/a.pdf", "image/jpeg"}, // non-image falls back
		{"receipts/noext", "image/jpeg"},
	}
	for _, tt := range tests {
		if got := imageMIMEType(tt.object); got != tt.want {
			t.Errorf("imageMIMEType(%q) = %q, want %q", tt.object, got, tt.want)
		}
	}
}
