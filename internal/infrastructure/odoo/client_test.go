package odoo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salesiq/backend/internal/domain/shared"
	"github.com/salesiq/backend/internal/infrastructure/config"
)

// stubCaller records calls and plays back canned replies.
type stubCaller struct {
	mu      sync.Mutex
	calls   []stubCall
	replies []interface{}
	err     error
}

type stubCall struct {
	method string
	args   interface{}
}

func (s *stubCaller) Call(method string, args interface{}, reply interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stubCall{method: method, args: args})
	if s.err != nil {
		return s.err
	}
	if len(s.replies) > 0 {
		*(reply.(*interface{})) = s.replies[0]
		s.replies = s.replies[1:]
	}
	return nil
}

func (s *stubCaller) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testClient(common, object caller) *Client {
	return &Client{
		cfg: config.OdooConfig{
			URL:      "https://example.odoo.com",
			Database: "test",
			Username: "api@example.com",
			APIKey:   "key",
		},
		logger: zap.NewNop(),
		common: common,
		object: object,
	}
}

func TestClient_Session(t *testing.T) {
	t.Run("authenticates lazily and caches the uid", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7), int64(7)}}
		c := testClient(common, &stubCaller{})

		uid, err := c.Ping(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(7), uid)

		_, err = c.Ping(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, common.callCount(), "second call must reuse the session")
	})

	t.Run("rejected credentials surface as upstream error", func(t *testing.T) {
		// Odoo answers false instead of a uid for bad credentials.
		common := &stubCaller{replies: []interface{}{false}}
		c := testClient(common, &stubCaller{})

		_, err := c.Ping(context.Background())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrUpstream.Code, domainErr.Code)
		assert.Contains(t, domainErr.Message, "invalid credentials")
	})

	t.Run("transport failure surfaces as upstream error", func(t *testing.T) {
		common := &stubCaller{err: errors.New("connection refused")}
		c := testClient(common, &stubCaller{})

		_, err := c.Ping(context.Background())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrUpstream.Code, domainErr.Code)
	})

	t.Run("concurrent first calls authenticate once", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(9), int64(9), int64(9), int64(9)}}
		c := testClient(common, &stubCaller{})

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.Ping(context.Background())
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, common.callCount())
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := testClient(&stubCaller{}, &stubCaller{})
		_, err := c.Ping(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_ExecuteKw(t *testing.T) {
	t.Run("routes model calls through the object endpoint", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7)}}
		object := &stubCaller{replies: []interface{}{[]interface{}{map[string]interface{}{"id": int64(1)}}}}
		c := testClient(common, object)

		reply, err := c.ExecuteKw(context.Background(), "sale.order", "search_read", []interface{}{[]interface{}{}}, nil)
		require.NoError(t, err)
		assert.NotNil(t, reply)

		require.Len(t, object.calls, 1)
		assert.Equal(t, "execute_kw", object.calls[0].method)
		args := object.calls[0].args.([]interface{})
		assert.Equal(t, "test", args[0])
		assert.Equal(t, int64(7), args[1])
		assert.Equal(t, "sale.order", args[3])
		assert.Equal(t, "search_read", args[4])
	})

	t.Run("query failure surfaces model and method", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7)}}
		object := &stubCaller{err: errors.New("boom")}
		c := testClient(common, object)

		_, err := c.ExecuteKw(context.Background(), "crm.lead", "search_read", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crm.lead")
		assert.Contains(t, err.Error(), "search_read")
	})

	t.Run("access denied fault drops the session", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7), int64(8)}}
		object := &stubCaller{err: errors.New("odoo.exceptions.AccessDenied")}
		c := testClient(common, object)

		_, err := c.ExecuteKw(context.Background(), "sale.order", "search_read", nil, nil)
		require.Error(t, err)
		assert.Equal(t, 1, common.callCount())

		// Backend accepts the rotated key again.
		object.mu.Lock()
		object.err = nil
		object.mu.Unlock()

		_, err = c.ExecuteKw(context.Background(), "sale.order", "search_read", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, common.callCount(), "invalidated session must re-authenticate")
	})

	t.Run("non-auth fault keeps the session", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7)}}
		object := &stubCaller{err: errors.New("connection reset by peer")}
		c := testClient(common, object)

		_, err := c.ExecuteKw(context.Background(), "sale.order", "search_read", nil, nil)
		require.Error(t, err)

		object.mu.Lock()
		object.err = nil
		object.mu.Unlock()

		_, err = c.ExecuteKw(context.Background(), "sale.order", "search_read", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, common.callCount(), "transient faults must not force a new login")
	})
}

func TestClient_SearchRead(t *testing.T) {
	t.Run("decodes rows into records", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7)}}
		object := &stubCaller{replies: []interface{}{[]interface{}{
			map[string]interface{}{"id": int64(1), "name": "S00001"},
			map[string]interface{}{"id": int64(2), "name": "S00002"},
		}}}
		c := testClient(common, object)

		records, err := c.SearchRead(context.Background(), "sale.order", []interface{}{}, QueryOptions{
			Fields: []string{"name"},
			Limit:  10,
		})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "S00001", records[0].Str("name"))

		args := object.calls[0].args.([]interface{})
		kwargs := args[6].(map[string]interface{})
		assert.Equal(t, []string{"name"}, kwargs["fields"])
		assert.Equal(t, 10, kwargs["limit"])
	})

	t.Run("rejects malformed replies", func(t *testing.T) {
		common := &stubCaller{replies: []interface{}{int64(7)}}
		object := &stubCaller{replies: []interface{}{"not a list"}}
		c := testClient(common, object)

		_, err := c.SearchRead(context.Background(), "sale.order", []interface{}{}, QueryOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected search_read reply")
	})
}
