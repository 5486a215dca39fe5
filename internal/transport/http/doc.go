// Package http provides http.RoundTripper decorators shared by the manifest loader
// and the transfer adapter: debug request/response logging and User-Agent injection.
package http
