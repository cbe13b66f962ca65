package odoo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"

	"github.com/salesiq/backend/internal/domain/shared"
	"github.com/salesiq/backend/internal/infrastructure/config"
	"github.com/salesiq/backend/internal/infrastructure/logger"
)

// caller is the XML-RPC transport the client talks through. The real
// implementation is kolo/xmlrpc; tests substitute a stub.
type caller interface {
	Call(serviceMethod string, args interface{}, reply interface{}) error
}

// Client speaks the Odoo external API over XML-RPC. Authentication is
// lazy: the first call that needs a session authenticates against the
// common endpoint and caches the numeric user id for the lifetime of
// the process. The session check and the authentication run under one
// mutex so concurrent requests cannot race into duplicate logins.
type Client struct {
	cfg    config.OdooConfig
	logger *zap.Logger

	common caller
	object caller

	mu  sync.Mutex
	uid int64
}

// NewClient builds a client for the configured Odoo instance. No
// network traffic happens here; the first query authenticates.
func NewClient(cfg config.OdooConfig, log *zap.Logger) (*Client, error) {
	transport := &http.Transport{
		ResponseHeaderTimeout: cfg.Timeout,
	}
	common, err := xmlrpc.NewClient(cfg.CommonEndpoint(), transport)
	if err != nil {
		return nil, fmt.Errorf("creating common endpoint client: %w", err)
	}
	object, err := xmlrpc.NewClient(cfg.ObjectEndpoint(), transport)
	if err != nil {
		return nil, fmt.Errorf("creating object endpoint client: %w", err)
	}
	return &Client{
		cfg:    cfg,
		logger: log,
		common: common,
		object: object,
	}, nil
}

// log returns the request-scoped logger when the context carries one,
// so backend queries correlate with the HTTP request that drove them.
func (c *Client) log(ctx context.Context) *zap.Logger {
	if logger.GetRequestID(ctx) != "" {
		return logger.FromContext(ctx)
	}
	return c.logger
}

// session returns the authenticated user id, logging in on first use.
func (c *Client) session(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uid != 0 {
		return c.uid, nil
	}

	var reply interface{}
	err := c.common.Call("authenticate", []interface{}{
		c.cfg.Database, c.cfg.Username, c.cfg.APIKey, map[string]interface{}{},
	}, &reply)
	if err != nil {
		c.logger.Error("Odoo authentication failed", zap.Error(err))
		return 0, shared.NewDomainError(shared.ErrUpstream.Code, fmt.Sprintf("Authentication failed: %v", err))
	}

	uid, ok := toInt64(reply)
	if !ok || uid == 0 {
		// Odoo returns boolean false for bad credentials.
		c.logger.Error("Odoo rejected the configured credentials",
			zap.String("database", c.cfg.Database),
			zap.String("username", c.cfg.Username))
		return 0, shared.NewDomainError(shared.ErrUpstream.Code, "Authentication failed: invalid credentials")
	}

	c.uid = uid
	c.logger.Info("authenticated against Odoo",
		zap.String("database", c.cfg.Database),
		zap.Int64("uid", uid))
	return uid, nil
}

// Ping verifies connectivity by ensuring an authenticated session and
// returns its user id.
func (c *Client) Ping(ctx context.Context) (int64, error) {
	return c.session(ctx)
}

// ExecuteKw invokes a model method through the object endpoint.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	uid, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	var reply interface{}
	err = c.object.Call("execute_kw", []interface{}{
		c.cfg.Database, uid, c.cfg.APIKey, model, method, args, kwargs,
	}, &reply)
	if err != nil {
		if isAuthFault(err) {
			// The cached session is no longer valid (key rotated,
			// session expired); drop it so the next call logs in again.
			c.mu.Lock()
			c.uid = 0
			c.mu.Unlock()
		}
		c.log(ctx).Error("Odoo query failed",
			zap.String("model", model),
			zap.String("method", method),
			zap.Error(err))
		return nil, shared.NewDomainError(shared.ErrUpstream.Code, fmt.Sprintf("Error executing %s on %s: %v", method, model, err))
	}

	c.log(ctx).Debug("Odoo query executed",
		zap.String("model", model),
		zap.String("method", method))
	return reply, nil
}

// QueryOptions narrows a SearchRead call.
type QueryOptions struct {
	Fields []string
	Limit  int
	Order  string
}

// SearchRead runs search_read on a model and returns the raw records.
func (c *Client) SearchRead(ctx context.Context, model string, domain []interface{}, opts QueryOptions) ([]Record, error) {
	kwargs := map[string]interface{}{}
	if len(opts.Fields) > 0 {
		kwargs["fields"] = opts.Fields
	}
	if opts.Limit > 0 {
		kwargs["limit"] = opts.Limit
	}
	if opts.Order != "" {
		kwargs["order"] = opts.Order
	}

	reply, err := c.ExecuteKw(ctx, model, "search_read", []interface{}{domain}, kwargs)
	if err != nil {
		return nil, err
	}

	rows, ok := reply.([]interface{})
	if !ok {
		return nil, shared.NewDomainError(shared.ErrUpstream.Code, fmt.Sprintf("unexpected search_read reply shape for %s", model))
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]interface{}); ok {
			records = append(records, Record(m))
		}
	}

	c.log(ctx).Debug("Odoo records fetched",
		zap.String("model", model),
		zap.Int("count", len(records)))
	return records, nil
}

// isAuthFault reports whether an object-endpoint fault means the
// current session was rejected. Odoo raises AccessDenied for a revoked
// key or stale uid and "Session expired" on web-session reuse.
func isAuthFault(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "accessdenied") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "session expired")
}

// toInt64 coerces the loosely typed values XML-RPC decoding produces.
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
