package grpc

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
	"github.com/simaogato/papertrade-backend/internal/usecase/trade"
)

// Compile-time interface checks.
var _ TradingServiceServer = (*Server)(nil)

// Server implements the TradingService gRPC server
type Server struct {
	AccountService   *account.AccountService
	TradeService     *trade.TradeService
	PortfolioService *portfolio.PortfolioService
}

// NewServer creates a new gRPC server instance
func NewServer(
	accountService *account.AccountService,
	tradeService *trade.TradeService,
	portfolioService *portfolio.PortfolioService,
) *Server {
	return &Server{
		AccountService:   accountService,
		TradeService:     tradeService,
		PortfolioService: portfolioService,
	}
}

// Register handles the Register RPC
func (s *Server) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acc, err := s.AccountService.Register(ctx,
		stringField(req, "username"), stringField(req, "password"), stringField(req, "keyword"))
	if err != nil {
		return nil, mapError(err)
	}
	return accountResponse(acc)
}

// Login handles the Login RPC. The returned account_id is sent back by the
// client in the x-account-id header.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acc, err := s.AccountService.Authenticate(ctx, stringField(req, "username"), stringField(req, "password"))
	if err != nil {
		return nil, mapError(err)
	}
	return accountResponse(acc)
}

// ResetPassword handles the ResetPassword RPC
func (s *Server) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	err := s.AccountService.ResetPassword(ctx,
		stringField(req, "username"), stringField(req, "keyword"), stringField(req, "new_password"))
	if err != nil {
		return nil, mapError(err)
	}
	return newStruct(map[string]any{})
}

// Quote handles the Quote RPC
func (s *Server) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := s.TradeService.Quote(ctx, stringField(req, "symbol"))
	if err != nil {
		return nil, mapError(err)
	}
	return newStruct(map[string]any{
		"symbol": q.Symbol,
		"name":   q.Name,
		"price":  q.Price.String(),
	})
}

// Buy handles the Buy RPC
func (s *Server) Buy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}
	quantity, err := quantityField(req, "quantity")
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.TradeService.ExecuteBuy(ctx, accountID, stringField(req, "symbol"), quantity)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"transaction_id": result.Transaction.ID.String(),
		"symbol":         result.Holding.Symbol,
		"quantity":       quantity,
		"price":          result.Transaction.Price.String(),
		"cost":           result.Cost.String(),
		"shares":         result.Holding.Shares,
		"cash":           result.Cash.String(),
		"executed_at":    formatTime(result.Transaction.ExecutedAt),
	})
}

// Sell handles the Sell RPC
func (s *Server) Sell(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}
	quantity, err := quantityField(req, "quantity")
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.TradeService.ExecuteSell(ctx, accountID, stringField(req, "symbol"), quantity)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"transaction_id":   result.Transaction.ID.String(),
		"symbol":           result.Transaction.Symbol,
		"quantity":         quantity,
		"price":            result.Transaction.Price.String(),
		"proceeds":         result.Proceeds.String(),
		"remaining_shares": result.RemainingShares,
		"cash":             result.Cash.String(),
		"executed_at":      formatTime(result.Transaction.ExecutedAt),
	})
}

// Portfolio handles the Portfolio RPC: prune, refresh and value the account
func (s *Server) Portfolio(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	overview, err := s.PortfolioService.Overview(ctx, accountID)
	if err != nil {
		return nil, mapError(err)
	}

	holdings := make([]any, 0, len(overview.Holdings))
	for _, h := range overview.Holdings {
		holdings = append(holdings, map[string]any{
			"symbol":     h.Symbol,
			"name":       h.Name,
			"shares":     h.Shares,
			"price":      h.Price.String(),
			"total":      h.Total.String(),
			"updated_at": formatTime(h.UpdatedAt),
		})
	}
	failed := make([]any, 0, len(overview.FailedSymbols))
	for _, symbol := range overview.FailedSymbols {
		failed = append(failed, symbol)
	}

	return newStruct(map[string]any{
		"cash":           overview.Cash.String(),
		"holdings_value": overview.HoldingsValue.String(),
		"total":          overview.Total.String(),
		"stale":          overview.Stale,
		"failed_symbols": failed,
		"holdings":       holdings,
	})
}

// History handles the History RPC
func (s *Server) History(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := s.PortfolioService.History(ctx, accountID)
	if err != nil {
		return nil, mapError(err)
	}

	entries := make([]any, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, map[string]any{
			"id":          tx.ID.String(),
			"symbol":      tx.Symbol,
			"delta":       tx.Delta,
			"price":       tx.Price.String(),
			"executed_at": formatTime(tx.ExecutedAt),
		})
	}

	return newStruct(map[string]any{"transactions": entries})
}

func accountResponse(acc *domain.Account) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"account_id": acc.ID.String(),
		"username":   acc.Username,
		"cash":       acc.Cash.String(),
	})
}

func requireAccount(ctx context.Context) (uuid.UUID, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "missing "+AccountHeader+" header")
	}
	return id, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return out, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// quantityField accepts a whole number either as a JSON number or a string
func quantityField(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, domain.ErrInvalidQuantity
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n <= 0 || n != math.Trunc(n) || n > math.MaxInt64/2 {
			return 0, domain.ErrInvalidQuantity
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		return domain.ParseQuantity(kind.StringValue)
	default:
		return 0, domain.ErrInvalidQuantity
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUnknownSymbol),
		errors.Is(err, domain.ErrInvalidAccount):
		return status.Error(codes.InvalidArgument, errorMsg)
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrNoSuchHolding):
		return status.Error(codes.FailedPrecondition, errorMsg)
	case errors.Is(err, domain.ErrAccountNotFound):
		return status.Error(codes.NotFound, errorMsg)
	case errors.Is(err, domain.ErrUsernameTaken):
		return status.Error(codes.AlreadyExists, errorMsg)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, errorMsg)
	case errors.Is(err, domain.ErrStoreConflict):
		return status.Error(codes.Aborted, errorMsg)
	case errors.Is(err, domain.ErrProviderUnavailable):
		return status.Error(codes.Unavailable, errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
