// Package httpx is a small embeddable HTTP/1.1 server engine.
//
// A Server accepts TCP (or TLS) connections and runs one session per
// connection on an AsyncRunner. Each session reads a request head,
// decodes query, cookies and, for POST and PUT, the body (url-encoded,
// multipart/form-data or raw), calls the Handler, and sends the returned
// Response with fixed-length, chunked or gzip framing. Connections are
// reused while both peers allow keep-alive.
//
// Large bodies and uploaded files are stored in temp files that live only
// as long as the request; see TempFileManager.
//
// Quick start:
//
//	s := &httpx.Server{Addr: ":8080"}
//	s.Handler = httpx.HandlerFunc(func(r *httpx.Request) (*httpx.Response, error) {
//	    return httpx.NewFixedLengthResponse(httpx.StatusOK, httpx.MimePlaintext, "hello"), nil
//	})
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
//
// Routing by path prefix and static files are provided by package router.
package httpx
