package grpc

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the trading service over an established connection.
type Client struct {
	conn      grpc.ClientConnInterface
	token     string
	accountID string
}

// NewClient wraps conn. token is sent as the authorization header on every call.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// AccountID is the account selected by the last successful Login or Register.
func (c *Client) AccountID() string {
	return c.accountID
}

// Call invokes a trading service method with the given request fields.
func (c *Client) Call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("invalid %s request: %w", method, err)
	}

	md := metadata.Pairs("authorization", c.token)
	if c.accountID != "" {
		md.Set(AccountHeader, c.accountID)
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Register creates an account and selects it for later calls.
func (c *Client) Register(ctx context.Context, username, password, keyword string) (*structpb.Struct, error) {
	resp, err := c.Call(ctx, "Register", map[string]any{
		"username": username,
		"password": password,
		"keyword":  keyword,
	})
	if err != nil {
		return nil, err
	}
	c.accountID = resp.GetFields()["account_id"].GetStringValue()
	return resp, nil
}

// Login authenticates and selects the account for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*structpb.Struct, error) {
	resp, err := c.Call(ctx, "Login", map[string]any{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	c.accountID = resp.GetFields()["account_id"].GetStringValue()
	return resp, nil
}

func (c *Client) Buy(ctx context.Context, symbol string, quantity int64) (*structpb.Struct, error) {
	return c.Call(ctx, "Buy", map[string]any{"symbol": symbol, "quantity": strconv.FormatInt(quantity, 10)})
}

func (c *Client) Sell(ctx context.Context, symbol string, quantity int64) (*structpb.Struct, error) {
	return c.Call(ctx, "Sell", map[string]any{"symbol": symbol, "quantity": strconv.FormatInt(quantity, 10)})
}

func (c *Client) Portfolio(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "Portfolio", nil)
}

func (c *Client) History(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "History", nil)
}
