package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the trading service.
const ServiceName = "papertrade.v1.TradingService"

// TradingServiceServer is the server API for the trading service.
// Every request and response is a google.protobuf.Struct.
type TradingServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Quote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Buy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sell(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Portfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TradingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// TradingServiceDesc describes the service for grpc.ServiceRegistrar.
var TradingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler("Register", TradingServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler("Login", TradingServiceServer.Login)},
		{MethodName: "ResetPassword", Handler: unaryHandler("ResetPassword", TradingServiceServer.ResetPassword)},
		{MethodName: "Quote", Handler: unaryHandler("Quote", TradingServiceServer.Quote)},
		{MethodName: "Buy", Handler: unaryHandler("Buy", TradingServiceServer.Buy)},
		{MethodName: "Sell", Handler: unaryHandler("Sell", TradingServiceServer.Sell)},
		{MethodName: "Portfolio", Handler: unaryHandler("Portfolio", TradingServiceServer.Portfolio)},
		{MethodName: "History", Handler: unaryHandler("History", TradingServiceServer.History)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "papertrade/v1/trading.proto",
}

// RegisterTradingServiceServer registers srv with s.
func RegisterTradingServiceServer(s grpc.ServiceRegistrar, srv TradingServiceServer) {
	s.RegisterService(&TradingServiceDesc, srv)
}

// FullMethod returns the wire name of a trading service method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TradingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TradingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
