// Command dircapture is a capture plugin that serves the newest image from a
// directory. The device passed by the host names the directory; it falls back
// to $DRAWCLASS_CAPTURE_DIR.
package main

import (
	"cmp"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-plugin"

	capturerpc "drawclass/internal/modules/capture/adapter/out/rpc"
)

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *capturerpc.Empty) (*capturerpc.Metadata, error) {
	devices := []string{}
	if dir := os.Getenv("DRAWCLASS_CAPTURE_DIR"); dir != "" {
		devices = append(devices, dir)
	}
	return &capturerpc.Metadata{Name: "dircapture", Version: "1.0.0", Devices: devices}, nil
}

func (s *server) Capture(_ context.Context, in *capturerpc.CaptureRequest) (*capturerpc.CaptureResponse, error) {
	dir := in.Device
	if dir == "" {
		dir = os.Getenv("DRAWCLASS_CAPTURE_DIR")
	}
	if dir == "" {
		return nil, fmt.Errorf("no capture directory given")
	}
	path, err := newest(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &capturerpc.CaptureResponse{Image: data, MediaType: mime.TypeByExtension(filepath.Ext(path))}, nil
}

func newest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path string
		mod  int64
	}
	var found []candidate
	for _, entry := range entries {
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, candidate{path: filepath.Join(dir, entry.Name()), mod: info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no images in %s", dir)
	}
	latest := slices.MaxFunc(found, func(a, b candidate) int {
		if c := cmp.Compare(a.mod, b.mod); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	return latest.path, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: capturerpc.HandshakeConfig,
		Plugins:         capturerpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
