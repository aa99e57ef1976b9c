// Package httputil holds the JSON response helpers shared by every handler,
// so success bodies and the error envelope look the same on all endpoints.
package httputil
