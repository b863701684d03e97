package util

import (
	"net/http"
	"testing"
)

func mustRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestNewProxyFunc_SchemeSelection(t *testing.T) {
	proxy := NewProxyFunc("http://plain-proxy:3128", "http://tls-proxy:3128", "")

	got, err := proxy(mustRequest(t, "http://scoring.internal/predict"))
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if got == nil || got.Host != "plain-proxy:3128" {
		t.Errorf("expected plain-proxy for http, got %v", got)
	}

	got, err = proxy(mustRequest(t, "https://scoring.internal/predict"))
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if got == nil || got.Host != "tls-proxy:3128" {
		t.Errorf("expected tls-proxy for https, got %v", got)
	}
}

func TestNewProxyFunc_NoProxyBypass(t *testing.T) {
	proxy := NewProxyFunc("http://plain-proxy:3128", "", "scoring.internal")

	got, err := proxy(mustRequest(t, "http://scoring.internal/predict"))
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected direct connection for no_proxy host, got %v", got)
	}
}
