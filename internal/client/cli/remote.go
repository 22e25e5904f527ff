package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/shareify/internal/client/services"
)

// List prints the entries of path on the user's server.
func (a *App) List(ctx context.Context, path string) error {
	if path == "" {
		path = "/"
	}
	items, err := a.files.List(ctx, path)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.println("(empty)")
	}
	for _, item := range items {
		a.println(item)
	}
	return nil
}

// ExecRequest is a raw command typed by the user.
type ExecRequest struct {
	Command  string
	Method   string
	Body     string
	WaitTime int
	Plain    bool
}

// Exec runs an arbitrary command and prints the JSON result.
func (a *App) Exec(ctx context.Context, req ExecRequest) error {
	if !strings.HasPrefix(req.Command, "/") {
		return fmt.Errorf("command must start with '/', got %q", req.Command)
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body map[string]any
	if strings.TrimSpace(req.Body) != "" {
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return fmt.Errorf("body must be a JSON object: %w", err)
		}
	}

	var opts []services.ExecOption
	if req.Plain {
		opts = append(opts, services.WithoutEncryption())
	}
	res, err := a.commands.Execute(ctx, services.Command{
		Name:     req.Command,
		Method:   method,
		Body:     body,
		WaitTime: req.WaitTime,
	}, opts...)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, res.Raw, "", "  "); err != nil {
		a.println(string(res.Raw))
		return nil
	}
	a.println(pretty.String())
	return nil
}
