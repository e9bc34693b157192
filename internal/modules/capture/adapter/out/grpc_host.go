package out

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	capturerpc "drawclass/internal/modules/capture/adapter/out/rpc"
	"drawclass/internal/modules/capture/domain"
	captureout "drawclass/internal/modules/capture/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost launches a capture plugin process per call.
type GRPCHost struct {
	logger hclog.Logger
}

func NewGRPCHost(logger hclog.Logger) captureout.PluginHost {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GRPCHost{logger: logger.Named("plugin")}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, callError(callCtx, "get metadata", manifest.Name, err)
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Devices: meta.Devices}, nil
}

func (h *GRPCHost) Capture(ctx context.Context, manifest domain.Manifest, request domain.Request) (domain.Image, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.Image{}, err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	response, err := client.Capture(callCtx, &capturerpc.CaptureRequest{Device: request.Device})
	if err != nil {
		return domain.Image{}, callError(callCtx, "capture", manifest.Name, err)
	}
	return domain.Image{Data: response.Image, MediaType: response.MediaType}, nil
}

func (h *GRPCHost) connect(manifest domain.Manifest) (capturerpc.CapturePluginClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  capturerpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          capturerpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           h.logger.Named(manifest.Name),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start plugin %s: %w", manifest.Name, err)
	}
	raw, err := rpcClient.Dispense(capturerpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense plugin %s: %w", manifest.Name, err)
	}
	typed, ok := raw.(capturerpc.CapturePluginClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("plugin %s rpc client type mismatch", manifest.Name)
	}
	return typed, closeFn, nil
}

func callError(callCtx context.Context, op, name string, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s", domain.ErrPluginTimeout, name, op)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
