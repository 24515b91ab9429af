package iohttp

import (
	"fmt"
	"net/http"

	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/gnames/gn"
	"github.com/go-chi/render"
)

// ServerStartError creates an error for a query API server that could
// not start or crashed while serving.
func ServerStartError(addr string, err error) error {
	msg := `Query API server at <em>%s</em> failed.

Possible causes:
- the port is already taken by another process
- the configured host is not a local interface

How to fix:
- change [http] host/port in the config file, or
- stop the process holding the port`
	vars := []any{addr}

	return &gn.Error{
		Code: errcode.ServerStartError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("http server at %s failed: %w", addr, err),
	}
}

// errResponse is the JSON body of every non-2xx API reply.
type errResponse struct {
	HTTPStatus int    `json:"-"`
	Message    string `json:"error"`
}

// Render implements render.Renderer.
func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatus)
	return nil
}

func apiError(status int, msg string) render.Renderer {
	return &errResponse{HTTPStatus: status, Message: msg}
}
