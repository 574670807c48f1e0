package timeslotsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "fairway.timeslots.v1.TimeSlotsService"

const (
	MethodCreateSlot        = "CreateSlot"
	MethodGetSlot           = "GetSlot"
	MethodListSlots         = "ListSlots"
	MethodUpdateSlot        = "UpdateSlot"
	MethodDeleteSlot        = "DeleteSlot"
	MethodGenerateSlots     = "GenerateSlots"
	MethodCheckAvailability = "CheckAvailability"
	MethodDuplicateSlot     = "DuplicateSlot"
	MethodReserve           = "Reserve"
	MethodRelease           = "Release"
)

// FullMethod returns the path gRPC routes method under, e.g. /fairway.timeslots.v1.TimeSlotsService/GetSlot.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type TimeSlotsServiceServer interface {
	CreateSlot(context.Context, *CreateSlotRequest) (*CreateSlotResponse, error)
	GetSlot(context.Context, *GetSlotRequest) (*GetSlotResponse, error)
	ListSlots(context.Context, *ListSlotsRequest) (*ListSlotsResponse, error)
	UpdateSlot(context.Context, *UpdateSlotRequest) (*UpdateSlotResponse, error)
	DeleteSlot(context.Context, *DeleteSlotRequest) (*DeleteSlotResponse, error)
	GenerateSlots(context.Context, *GenerateSlotsRequest) (*GenerateSlotsResponse, error)
	CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	DuplicateSlot(context.Context, *DuplicateSlotRequest) (*DuplicateSlotResponse, error)
	Reserve(context.Context, *OccupancyRequest) (*OccupancyResponse, error)
	Release(context.Context, *OccupancyRequest) (*OccupancyResponse, error)
}

// UnimplementedTimeSlotsServiceServer can be embedded to stay forward compatible.
type UnimplementedTimeSlotsServiceServer struct{}

func (UnimplementedTimeSlotsServiceServer) CreateSlot(context.Context, *CreateSlotRequest) (*CreateSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSlot not implemented")
}
func (UnimplementedTimeSlotsServiceServer) GetSlot(context.Context, *GetSlotRequest) (*GetSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSlot not implemented")
}
func (UnimplementedTimeSlotsServiceServer) ListSlots(context.Context, *ListSlotsRequest) (*ListSlotsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSlots not implemented")
}
func (UnimplementedTimeSlotsServiceServer) UpdateSlot(context.Context, *UpdateSlotRequest) (*UpdateSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateSlot not implemented")
}
func (UnimplementedTimeSlotsServiceServer) DeleteSlot(context.Context, *DeleteSlotRequest) (*DeleteSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteSlot not implemented")
}
func (UnimplementedTimeSlotsServiceServer) GenerateSlots(context.Context, *GenerateSlotsRequest) (*GenerateSlotsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateSlots not implemented")
}
func (UnimplementedTimeSlotsServiceServer) CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckAvailability not implemented")
}
func (UnimplementedTimeSlotsServiceServer) DuplicateSlot(context.Context, *DuplicateSlotRequest) (*DuplicateSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DuplicateSlot not implemented")
}
func (UnimplementedTimeSlotsServiceServer) Reserve(context.Context, *OccupancyRequest) (*OccupancyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Reserve not implemented")
}
func (UnimplementedTimeSlotsServiceServer) Release(context.Context, *OccupancyRequest) (*OccupancyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Release not implemented")
}

func RegisterTimeSlotsServiceServer(s grpc.ServiceRegistrar, srv TimeSlotsServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TimeSlotsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateSlot, Handler: unaryHandler(MethodCreateSlot, TimeSlotsServiceServer.CreateSlot)},
		{MethodName: MethodGetSlot, Handler: unaryHandler(MethodGetSlot, TimeSlotsServiceServer.GetSlot)},
		{MethodName: MethodListSlots, Handler: unaryHandler(MethodListSlots, TimeSlotsServiceServer.ListSlots)},
		{MethodName: MethodUpdateSlot, Handler: unaryHandler(MethodUpdateSlot, TimeSlotsServiceServer.UpdateSlot)},
		{MethodName: MethodDeleteSlot, Handler: unaryHandler(MethodDeleteSlot, TimeSlotsServiceServer.DeleteSlot)},
		{MethodName: MethodGenerateSlots, Handler: unaryHandler(MethodGenerateSlots, TimeSlotsServiceServer.GenerateSlots)},
		{MethodName: MethodCheckAvailability, Handler: unaryHandler(MethodCheckAvailability, TimeSlotsServiceServer.CheckAvailability)},
		{MethodName: MethodDuplicateSlot, Handler: unaryHandler(MethodDuplicateSlot, TimeSlotsServiceServer.DuplicateSlot)},
		{MethodName: MethodReserve, Handler: unaryHandler(MethodReserve, TimeSlotsServiceServer.Reserve)},
		{MethodName: MethodRelease, Handler: unaryHandler(MethodRelease, TimeSlotsServiceServer.Release)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fairway/timeslots/v1/timeslots.json",
}

func unaryHandler[Req, Resp any](method string, call func(TimeSlotsServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(TimeSlotsServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// Client calls the service with the JSON content subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSlot(ctx context.Context, in *CreateSlotRequest, opts ...grpc.CallOption) (*CreateSlotResponse, error) {
	return invoke[CreateSlotResponse](ctx, c.cc, MethodCreateSlot, in, opts)
}

func (c *Client) GetSlot(ctx context.Context, in *GetSlotRequest, opts ...grpc.CallOption) (*GetSlotResponse, error) {
	return invoke[GetSlotResponse](ctx, c.cc, MethodGetSlot, in, opts)
}

func (c *Client) ListSlots(ctx context.Context, in *ListSlotsRequest, opts ...grpc.CallOption) (*ListSlotsResponse, error) {
	return invoke[ListSlotsResponse](ctx, c.cc, MethodListSlots, in, opts)
}

func (c *Client) UpdateSlot(ctx context.Context, in *UpdateSlotRequest, opts ...grpc.CallOption) (*UpdateSlotResponse, error) {
	return invoke[UpdateSlotResponse](ctx, c.cc, MethodUpdateSlot, in, opts)
}

func (c *Client) DeleteSlot(ctx context.Context, in *DeleteSlotRequest, opts ...grpc.CallOption) (*DeleteSlotResponse, error) {
	return invoke[DeleteSlotResponse](ctx, c.cc, MethodDeleteSlot, in, opts)
}

func (c *Client) GenerateSlots(ctx context.Context, in *GenerateSlotsRequest, opts ...grpc.CallOption) (*GenerateSlotsResponse, error) {
	return invoke[GenerateSlotsResponse](ctx, c.cc, MethodGenerateSlots, in, opts)
}

func (c *Client) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error) {
	return invoke[CheckAvailabilityResponse](ctx, c.cc, MethodCheckAvailability, in, opts)
}

func (c *Client) DuplicateSlot(ctx context.Context, in *DuplicateSlotRequest, opts ...grpc.CallOption) (*DuplicateSlotResponse, error) {
	return invoke[DuplicateSlotResponse](ctx, c.cc, MethodDuplicateSlot, in, opts)
}

func (c *Client) Reserve(ctx context.Context, in *OccupancyRequest, opts ...grpc.CallOption) (*OccupancyResponse, error) {
	return invoke[OccupancyResponse](ctx, c.cc, MethodReserve, in, opts)
}

func (c *Client) Release(ctx context.Context, in *OccupancyRequest, opts ...grpc.CallOption) (*OccupancyResponse, error) {
	return invoke[OccupancyResponse](ctx, c.cc, MethodRelease, in, opts)
}
