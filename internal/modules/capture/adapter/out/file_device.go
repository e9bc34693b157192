package out

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"drawclass/internal/modules/capture/domain"
)

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// FileDevice reads an image file. When the device path is a directory it
// picks the most recently modified image inside it.
type FileDevice struct{}

func NewFileDevice() *FileDevice {
	return &FileDevice{}
}

func (d *FileDevice) Grab(ctx context.Context, request domain.Request) (domain.Image, error) {
	if request.Device == "" {
		return domain.Image{}, fmt.Errorf("file source needs a path")
	}
	path, err := resolveImagePath(request.Device)
	if err != nil {
		return domain.Image{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Image{Data: data, MediaType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))}, nil
}

func resolveImagePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	newest := ""
	var newestInfo os.FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newestInfo == nil || info.ModTime().After(newestInfo.ModTime()) ||
			(info.ModTime().Equal(newestInfo.ModTime()) && entry.Name() > filepath.Base(newest)) {
			newest = filepath.Join(path, entry.Name())
			newestInfo = info
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no images in %s", path)
	}
	return newest, nil
}
