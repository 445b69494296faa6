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

package actor

import "net/http"

// Request is the HTTP-like request a grain handles.
type Request struct {
	// Method is the request method, e.g. "GET".
	Method string
	// Path is the route remainder forwarded to the grain, e.g. "/increment".
	Path string
	// URLPath is the full path the front door received, e.g. "/x/increment".
	URLPath string
}

// NewRequest creates a GET request for the given forwarded path.
func NewRequest(path, urlPath string) *Request {
	return &Request{
		Method:  http.MethodGet,
		Path:    path,
		URLPath: urlPath,
	}
}

// Response is what a grain answers with.
type Response struct {
	// Status is the HTTP-equivalent status code.
	Status int
	// Body is the text payload.
	Body string
}

// NewResponse creates a 200 response carrying body.
func NewResponse(body string) *Response {
	return &Response{Status: http.StatusOK, Body: body}
}
