package httpx

import (
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func DecompressResponseBody(response *http.Response) (reader io.Reader, cleanup func(), err error) {
	switch response.Header.Get("Content-Encoding") {
	case "gzip":
		gzReader, gzErr := gzip.NewReader(response.Body)
		if gzErr != nil {
			return nil, func() {}, gzErr
		}
		reader = gzReader
		cleanup = func() { gzReader.Close() }
	case "deflate":
		flReader := flate.NewReader(response.Body)
		reader = flReader
		cleanup = func() { flReader.Close() }
	case "br":
		reader = brotli.NewReader(response.Body)
		cleanup = func() {}
	case "zstd":
		zReader, zErr := zstd.NewReader(response.Body)
		if zErr != nil {
			return nil, func() {}, zErr
		}
		reader = zReader
		cleanup = func() { zReader.Close() }
	default:
		reader = response.Body
		cleanup = func() {}
	}

	return reader, cleanup, nil
}

// DecodeJSON decompresses the body of response according to its Content-Encoding
// and decodes it into v. The body is always closed.
func DecodeJSON(response *http.Response, v any) error {
	defer response.Body.Close()

	body, cleanup, err := DecompressResponseBody(response)
	if err != nil {
		return err
	}
	defer cleanup()

	return json.NewDecoder(body).Decode(v)
}

// ReadAll works like DecodeJSON for raw bodies.
func ReadAll(response *http.Response) ([]byte, error) {
	defer response.Body.Close()

	body, cleanup, err := DecompressResponseBody(response)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return io.ReadAll(body)
}
