package handler

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/event-pos/internal/auth"
	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/core/service"
)

const (
	SalesServiceName      = "pos.v1.SalesService"
	GetDashboardMethod    = "/" + SalesServiceName + "/GetDashboard"
	healthMethodPrefix    = "/grpc.health.v1.Health/"
	authorizationMetadata = "authorization"
)

// SalesServer is the server API of pos.v1.SalesService.
type SalesServer interface {
	GetDashboard(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// SalesServiceDesc describes pos.v1.SalesService. Messages are protobuf
// well-known types, so no generated code is involved.
var SalesServiceDesc = grpc.ServiceDesc{
	ServiceName: SalesServiceName,
	HandlerType: (*SalesServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetDashboard",
			Handler:    getDashboardHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pos/v1/sales.proto",
}

func getDashboardHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SalesServer).GetDashboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetDashboardMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SalesServer).GetDashboard(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// methodCapabilities lists the capability each RPC requires.
var methodCapabilities = map[string]domain.Capability{
	GetDashboardMethod: domain.CapViewDashboard,
}

type GRPCHandler struct {
	dashboard *service.DashboardService
	auth      *service.AuthService
	tokens    *auth.TokenIssuer
	logger    *zap.Logger
}

func NewGRPCHandler(dashboard *service.DashboardService, authService *service.AuthService, tokens *auth.TokenIssuer, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{dashboard: dashboard, auth: authService, tokens: tokens, logger: logger}
}

func (h *GRPCHandler) Register(s *grpc.Server) {
	s.RegisterService(&SalesServiceDesc, h)
}

func (h *GRPCHandler) GetDashboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := h.dashboard.Summary(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	out, err := structpb.NewStruct(summaryFields(summary))
	if err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}

func summaryFields(s *domain.SalesSummary) map[string]interface{} {
	top := make([]interface{}, 0, len(s.TopSellingItems))
	for _, item := range s.TopSellingItems {
		top = append(top, map[string]interface{}{
			"inventory_id": item.InventoryID,
			"name":         item.Name,
			"quantity":     item.Quantity,
		})
	}

	byMethod := make([]interface{}, 0, len(s.SalesByPaymentMethod))
	for _, m := range s.SalesByPaymentMethod {
		byMethod = append(byMethod, map[string]interface{}{
			"method": m.Method,
			"amount": m.Amount.InexactFloat64(),
		})
	}

	lowStock := make([]interface{}, 0, len(s.LowStockItems))
	for _, item := range s.LowStockItems {
		lowStock = append(lowStock, map[string]interface{}{
			"name":     item.Name,
			"quantity": item.Quantity,
		})
	}

	return map[string]interface{}{
		"total":                   s.Total.InexactFloat64(),
		"order_count":             s.OrderCount,
		"top_selling_items":       top,
		"sales_by_payment_method": byMethod,
		"low_stock_items":         lowStock,
	}
}

// UnaryAuthInterceptor resolves the caller from the bearer token in the
// authorization metadata and checks the capability the method requires.
// Health checks are not authenticated.
func (h *GRPCHandler) UnaryAuthInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if strings.HasPrefix(info.FullMethod, healthMethodPrefix) {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(authorizationMetadata)
	if len(values) == 0 {
		return nil, grpcError(domain.ErrUnauthenticated)
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok {
		return nil, grpcError(domain.ErrUnauthenticated)
	}

	claims, err := h.tokens.Parse(token)
	if err != nil {
		return nil, grpcError(err)
	}
	profile, err := h.auth.CurrentUser(ctx, claims.Subject)
	if err != nil {
		return nil, grpcError(err)
	}

	capability, known := methodCapabilities[info.FullMethod]
	if !known || !profile.Can(capability) {
		h.logger.Warn("rpc denied", zap.String("method", info.FullMethod), zap.String("user_id", profile.ID))
		return nil, grpcError(domain.ErrForbidden)
	}

	return handler(domain.WithProfile(ctx, *profile), req)
}
