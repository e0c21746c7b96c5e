package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadPhoto(t *testing.T) {
	var gotAuth, gotName string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions/photo" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		f, hdr, err := r.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		gotBody, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, StaticToken("tok"))
	if err := c.UploadPhoto(context.Background(), "/api/sessions/photo", "shot.jpg", []byte("jpegdata")); err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotName != "shot.jpg" || string(gotBody) != "jpegdata" {
		t.Errorf("upload = %q %q", gotName, gotBody)
	}
}

func TestUploadPhotoServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, StaticToken("tok")).UploadPhoto(context.Background(), "/p", "x.jpg", nil)
	if err == nil || !strings.Contains(err.Error(), "507") || !strings.Contains(err.Error(), "storage full") {
		t.Errorf("err = %v", err)
	}
}

func TestUploadPhotoNoToken(t *testing.T) {
	err := NewHTTPClient("http://127.0.0.1:1", StaticToken("")).UploadPhoto(context.Background(), "/p", "x.jpg", nil)
	if err == nil {
		t.Error("expected credential error")
	}
}
