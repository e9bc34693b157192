// Package rpc is the wire contract between drawclass and capture plugins:
// a go-plugin handshake plus a two-method gRPC service using a JSON codec.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "capture"
	serviceName       = "drawclass.capture.v1.CapturePlugin"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodCapture     = "/" + serviceName + "/Capture"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "DRAWCLASS_CAPTURE_PLUGIN",
	MagicCookieValue: "drawclass",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Devices []string `json:"devices"`
}

type CaptureRequest struct {
	Device string `json:"device"`
}

// CaptureResponse carries the encoded image; Image is base64 on the wire.
type CaptureResponse struct {
	Image     []byte `json:"image"`
	MediaType string `json:"media_type"`
}

type CapturePluginServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Capture(ctx context.Context, in *CaptureRequest) (*CaptureResponse, error)
}

type CapturePluginClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Capture(ctx context.Context, in *CaptureRequest) (*CaptureResponse, error)
}

type capturePluginClient struct {
	conn *grpc.ClientConn
}

func NewCapturePluginClient(conn *grpc.ClientConn) CapturePluginClient {
	return &capturePluginClient{conn: conn}
}

func (c *capturePluginClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *capturePluginClient) Capture(ctx context.Context, in *CaptureRequest) (*CaptureResponse, error) {
	out := &CaptureResponse{}
	if err := c.conn.Invoke(ctx, methodCapture, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler adapts a typed server method to a grpc.MethodDesc handler.
func unaryHandler[Req any, Resp any](method string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type %T", req)
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterCapturePluginServer(server grpc.ServiceRegistrar, impl CapturePluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*CapturePluginServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetMetadata", Handler: unaryHandler(methodGetMetadata, impl.GetMetadata)},
			{MethodName: "Capture", Handler: unaryHandler(methodCapture, impl.Capture)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "capture-rpc-v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl CapturePluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterCapturePluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewCapturePluginClient(conn), nil
}

func PluginMap(impl CapturePluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
