package artwork

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTmpfilesUpload_RewritesToDirectURL(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotBody = header.Filename, string(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"success","data":{"url":"https://tmpfiles.org/12345/cover.jpg"}}`)
	}))
	defer srv.Close()

	u := NewTmpfilesUploader(srv.URL)
	got, err := u.Upload(context.Background(), "cover.jpg", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if want := "https://tmpfiles.org/dl/12345/cover.jpg"; got != want {
		t.Errorf("Upload() = %q, want %q", got, want)
	}
	if gotName != "cover.jpg" || gotBody != "jpeg bytes" {
		t.Errorf("server received %q with %q", gotName, gotBody)
	}
}

func TestTmpfilesUpload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "http error", status: http.StatusBadGateway, body: "bad gateway", wantErr: "502"},
		{name: "rejected", status: http.StatusOK, body: `{"status":"error"}`, wantErr: "rejected"},
		{name: "missing url", status: http.StatusOK, body: `{"status":"success","data":{}}`, wantErr: "no url"},
		{name: "malformed", status: http.StatusOK, body: `not json`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewTmpfilesUploader(srv.URL).Upload(context.Background(), "a.jpg", []byte("x"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestTmpfilesUpload_Unreachable(t *testing.T) {
	u := NewTmpfilesUploader("http://127.0.0.1:1")
	if _, err := u.Upload(context.Background(), "a.jpg", []byte("x")); err == nil {
		t.Error("expected network error")
	}
}
