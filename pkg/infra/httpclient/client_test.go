package httpclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/csvpull/pkg/domain/types"
	"github.com/m-mizutani/csvpull/pkg/infra/httpclient"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="`+chi.URLParam(r, "name")+`"`)
		_, _ = w.Write([]byte("fake zip content"))
	})
	router.Get("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/moved.zip", http.StatusFound)
	})
	router.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	router.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Get_Success(t *testing.T) {
	server := newTestServer(t)
	client := httpclient.NewClient(
		httpclient.WithUserAgent("csvpull-test"),
		httpclient.WithHeader("X-Token", "secret"),
	)

	resp, err := client.Get(context.Background(), server.URL+"/files/data.zip")
	gt.NoError(t, err)
	defer resp.Body.Close()

	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, resp.ContentType, "application/zip")
	gt.Equal(t, resp.ContentDisposition, `attachment; filename="data.zip"`)
	gt.Equal(t, resp.URL.Path, "/files/data.zip")

	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)
	gt.Equal(t, string(body), "fake zip content")
}

func TestClient_Get_SendsHeaders(t *testing.T) {
	t.Run("custom headers", func(t *testing.T) {
		var got http.Header
		router := chi.NewRouter()
		router.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
		})
		echoServer := httptest.NewServer(router)
		defer echoServer.Close()

		client := httpclient.NewClient(
			httpclient.WithUserAgent("csvpull-test"),
			httpclient.WithHeader("X-Token", "secret"),
			httpclient.WithHeader("X-Token", "second"),
		)
		resp, err := client.Get(context.Background(), echoServer.URL+"/echo")
		gt.NoError(t, err)
		resp.Body.Close()

		gt.Equal(t, got.Get("User-Agent"), "csvpull-test")
		gt.Value(t, got.Values("X-Token")).Equal([]string{"secret", "second"})
	})

	t.Run("default user agent", func(t *testing.T) {
		var gotUA string
		router := chi.NewRouter()
		router.Get("/ua", func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
		})
		uaServer := httptest.NewServer(router)
		defer uaServer.Close()

		resp, err := httpclient.NewClient().Get(context.Background(), uaServer.URL+"/ua")
		gt.NoError(t, err)
		resp.Body.Close()
		gt.Equal(t, gotUA, httpclient.DefaultUserAgent)
	})
}

func TestClient_Get_FollowsRedirect(t *testing.T) {
	server := newTestServer(t)
	client := httpclient.NewClient()

	resp, err := client.Get(context.Background(), server.URL+"/redirect")
	gt.NoError(t, err)
	defer resp.Body.Close()

	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, resp.URL.Path, "/files/moved.zip")
}

func TestClient_Get_NonSuccessStatusIsNotError(t *testing.T) {
	server := newTestServer(t)
	client := httpclient.NewClient()

	resp, err := client.Get(context.Background(), server.URL+"/missing")
	gt.NoError(t, err)
	defer resp.Body.Close()

	gt.Equal(t, resp.StatusCode, http.StatusNotFound)
}

func TestClient_Get_Errors(t *testing.T) {
	client := httpclient.NewClient()

	t.Run("unsupported scheme", func(t *testing.T) {
		resp, err := client.Get(context.Background(), "asd://go.bug.st/test.zip")
		gt.Error(t, err)
		gt.Value(t, resp).Nil()
		gt.True(t, goerr.HasTag(err, types.ErrTagInvalidTarget))
	})

	t.Run("unparsable URL", func(t *testing.T) {
		_, err := client.Get(context.Background(), "http://[::1]:namedport")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagInvalidTarget))
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := client.Get(context.Background(), addr+"/data.zip")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagNetwork))
	})

	t.Run("timeout", func(t *testing.T) {
		server := newTestServer(t)
		client := httpclient.NewClient(httpclient.WithTimeout(20 * time.Millisecond))

		_, err := client.Get(context.Background(), server.URL+"/slow")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagNetwork))
	})
}
