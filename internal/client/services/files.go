package services

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/shareify/internal/api"
)

// FileService browses the file system of the user's server.
type FileService interface {
	List(ctx context.Context, path string) ([]string, error)
}

type fileService struct {
	commands CommandService
}

func NewFileService(commands CommandService) FileService {
	return &fileService{commands: commands}
}

// List returns the names in the directory at path.
func (f *fileService) List(ctx context.Context, path string) ([]string, error) {
	body, err := api.ToMap(api.FinderRequest{Path: path})
	if err != nil {
		return nil, err
	}
	res, err := f.commands.Execute(ctx, Command{
		Name:     CmdFinder,
		Method:   http.MethodPost,
		Body:     body,
		WaitTime: DefaultWaitTime,
	})
	if err != nil {
		return nil, err
	}

	var out api.FinderResponse
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []string{}
	}
	return out.Items, nil
}
