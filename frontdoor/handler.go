/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package frontdoor exposes the counter grains over HTTP.
//
// Routes:
//
//	GET /x/{path...}  forwards "/{path}" to the counter grain named "A"
//	GET /user         forwards "/" to the user grain named "B"
//	GET /healthz      pings the durable state store
//
// Anything else answers 404 "Not found".
package frontdoor

import (
	"context"
	"errors"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/tochemey/durable/actor"
	"github.com/tochemey/durable/counter"
	gerrors "github.com/tochemey/durable/errors"
	"github.com/tochemey/durable/log"
)

const (
	// CounterName is the grain serving the /x routes.
	CounterName = "A"
	// UserName is the grain serving the /user route.
	UserName = "B"

	notFound = "Not found"
)

// Asker is the part of the registry the front door relies on.
type Asker interface {
	Ask(ctx context.Context, kind, name string, request *actor.Request) (*actor.Response, error)
	Ping(ctx context.Context) error
}

var _ Asker = (*actor.Registry)(nil)

type handler struct {
	asker  Asker
	logger log.Logger
}

// NewHandler builds the front door routes on top of asker.
// The returned handler tags every request with an id, logs it and gzips
// large bodies for clients accepting it.
func NewHandler(asker Asker, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.DefaultLogger
	}

	h := &handler{asker: asker, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /x/{path...}", h.counter)
	mux.HandleFunc("GET /user", h.user)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, notFound, http.StatusNotFound)
	})

	return requestID(logging(gzhttp.GzipHandler(mux), logger))
}

func (h *handler) counter(w http.ResponseWriter, r *http.Request) {
	path := "/" + r.PathValue("path")
	h.forward(w, r, counter.Kind, CounterName, actor.NewRequest(path, r.URL.Path))
}

func (h *handler) user(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, counter.UserKind, UserName, actor.NewRequest(counter.PathRoot, r.URL.Path))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.asker.Ping(r.Context()); err != nil {
		h.logger.Warnf("health check failed: %v", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	writeText(w, http.StatusOK, "ok")
}

func (h *handler) forward(w http.ResponseWriter, r *http.Request, kind, name string, request *actor.Request) {
	request.Method = r.Method
	response, err := h.asker.Ask(r.Context(), kind, name, request)
	if err != nil {
		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Errorf("%s %s failed (request id=%s): %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), err)
		}
		message := http.StatusText(status)
		if status == http.StatusNotFound {
			message = notFound
		}
		http.Error(w, message, status)
		return
	}
	writeText(w, response.Status, response.Body)
}

// StatusOf maps a registry error onto an HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, gerrors.ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, gerrors.ErrCounterOverflow):
		return http.StatusConflict
	case errors.Is(err, gerrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, gerrors.ErrRequestTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
