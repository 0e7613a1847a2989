package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "https://terabox.com/s/1abcDEF", "https://terabox.com/s/1abcDEF"},
		{"www", "https://www.terabox.com/s/1abcDEF", "https://www.terabox.com/s/1abcDEF"},
		{"1024 variant", "https://1024terabox.com/s/1abcDEF", "https://1024terabox.com/s/1abcDEF"},
		{"teraboxlink", "https://teraboxlink.com/s/1abcDEF", "https://teraboxlink.com/s/1abcDEF"},
		{"terafileshare", "https://terafileshare.com/s/1abcDEF", "https://terafileshare.com/s/1abcDEF"},
		{"app tld", "https://terabox.app/s/1abcDEF", "https://terabox.app/s/1abcDEF"},
		{"uppercase host", "HTTPS://TERABOX.COM/s/1abcDEF", "HTTPS://TERABOX.COM/s/1abcDEF"},
		{"inside sentence", "watch this https://terabox.com/s/1abcDEF now", "https://terabox.com/s/1abcDEF"},
		{"query ignored", "https://terabox.com/s/1abcDEF?pwd=1234", "https://terabox.com/s/1abcDEF"},
		{"no scheme", "terabox.com/s/1abcDEF", ""},
		{"other host", "https://example.com/s/1abcDEF", ""},
		{"no link at all", "hello there", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractLink(tt.text); got != tt.want {
				t.Errorf("ExtractLink(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestShareKey(t *testing.T) {
	key, err := ShareKey("https://www.terabox.com/s/1abc_DEF-2")
	if err != nil {
		t.Fatalf("ShareKey: %v", err)
	}
	if key != "1abc_DEF-2" {
		t.Errorf("key = %q, want 1abc_DEF-2", key)
	}

	if _, err := ShareKey("https://dropbox.com/s/1abcDEF"); !errors.Is(err, ErrUnsupportedDomain) {
		t.Errorf("unsupported domain: err = %v, want ErrUnsupportedDomain", err)
	}
}

const dlinkPage = `<html><head><title>movie.mp4 - Terabox</title></head><body>
<script>var ctx = {"server_filename":"movie.mp4","size":"12345","dlink":"https:\/\/d.test\/file\/movie.mp4?sign=ok"};</script>
</body></html>`

const statePage = `<html><body><script>
window.__INITIAL_STATE__ = {"list":[{"downloadLink":"https:\/\/d.test\/state\/clip.mp4","server_filename":"clip.mp4","size":777}]};</script>
</body></html>`

const paramsPage = `<html><body><script>
var shareinfo = {"shareid":"111","uk":"222","fs_id":"333"};
</script></body></html>`

func newResolveClient(baseURL string, cache *Cache) *Client {
	return NewClient(baseURL, "ndus=test", 5*time.Second, cache)
}

func TestResolveEmbeddedDlink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s/1abcDEF" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Cookie") != "ndus=test" {
			t.Errorf("cookie header = %q", r.Header.Get("Cookie"))
		}
		w.Write([]byte(dlinkPage))
	}))
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	link, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if link.DirectURL != "https://d.test/file/movie.mp4?sign=ok" {
		t.Errorf("DirectURL = %q", link.DirectURL)
	}
	if link.Filename != "movie.mp4" {
		t.Errorf("Filename = %q, want movie.mp4", link.Filename)
	}
	if link.SizeBytes != 12345 {
		t.Errorf("SizeBytes = %d, want 12345", link.SizeBytes)
	}
}

func TestResolveInitialState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(statePage))
	}))
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	link, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if link.DirectURL != "https://d.test/state/clip.mp4" {
		t.Errorf("DirectURL = %q", link.DirectURL)
	}
	if link.Filename != "clip.mp4" || link.SizeBytes != 777 {
		t.Errorf("got %q/%d, want clip.mp4/777", link.Filename, link.SizeBytes)
	}
}

func TestResolveViaDownloadAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/s/1abcDEF", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(paramsPage))
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("shareid") != "111" || q.Get("uk") != "222" || q.Get("fidlist") != "[333]" {
			t.Errorf("bad api query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"errno":0,"list":[{"dlink":"https:\/\/d.test\/api\/video.mp4","server_filename":"video.mp4","size":"4096"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	link, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if link.DirectURL != "https://d.test/api/video.mp4" {
		t.Errorf("DirectURL = %q", link.DirectURL)
	}
	if link.Filename != "video.mp4" || link.SizeBytes != 4096 {
		t.Errorf("got %q/%d, want video.mp4/4096", link.Filename, link.SizeBytes)
	}
}

func TestResolveUnknownPageFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>brand new frontend</body></html>"))
	}))
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	if _, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF"); !errors.Is(err, ErrUpstreamFormat) {
		t.Errorf("err = %v, want ErrUpstreamFormat", err)
	}
}

func TestResolveAPIErrno(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/s/1abcDEF", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(paramsPage))
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errno":2,"list":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	if _, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF"); !errors.Is(err, ErrUpstreamFormat) {
		t.Errorf("err = %v, want ErrUpstreamFormat", err)
	}
}

func TestResolveAPIMalformedJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/s/1abcDEF", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(paramsPage))
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	if _, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF"); !errors.Is(err, ErrUpstreamFormat) {
		t.Errorf("err = %v, want ErrUpstreamFormat", err)
	}
}

func TestResolveUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newResolveClient(srv.URL, nil)
	if _, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF"); !errors.Is(err, ErrUpstreamUnreachable) {
		t.Errorf("5xx: err = %v, want ErrUpstreamUnreachable", err)
	}

	srv.Close()
	if _, err := c.Resolve(context.Background(), "https://terabox.com/s/1abcDEF"); !errors.Is(err, ErrUpstreamUnreachable) {
		t.Errorf("dead server: err = %v, want ErrUpstreamUnreachable", err)
	}
}

func TestResolveUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(dlinkPage))
	}))
	defer srv.Close()

	c := newResolveClient(srv.URL, NewCache(time.Minute, nil))
	ctx := context.Background()

	if _, err := c.Resolve(ctx, "https://terabox.com/s/1abcDEF"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	link, err := c.Resolve(ctx, "https://terabox.com/s/1abcDEF")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1", hits)
	}
	if link.Filename != "movie.mp4" {
		t.Errorf("cached Filename = %q, want movie.mp4", link.Filename)
	}
}
