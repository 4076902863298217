package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helloakshay27/hi-society-assets/internal/category"
	"github.com/helloakshay27/hi-society-assets/internal/form"
	"github.com/helloakshay27/hi-society-assets/internal/types"
	"github.com/helloakshay27/hi-society-assets/internal/validate"
)

func init() {
	if err := category.Init(); err != nil {
		panic(err)
	}
}

func dialSession(t *testing.T) (*websocket.Conn, *form.Session, context.Context) {
	t.Helper()
	sessions := form.NewManager(time.Hour, time.Hour)
	sess := sessions.Create(&types.FormState{
		AssetID:  42,
		Category: string(category.Vehicle),
		Core:     map[string]string{validate.FieldAssetName: "Forklift A"},
		Extra:    map[types.FieldKey]types.ExtraFieldEntry{},
	})

	srv := httptest.NewServer(NewHandler(sessions, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, srv.URL+"?session_id="+sess.ID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn, sess, ctx
}

func readMessage(ctx context.Context, t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	var msg ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ, id string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: typ, ID: id, Data: raw}))
}

func TestSessionHandshake(t *testing.T) {
	conn, sess, ctx := dialSession(t)

	msg := readMessage(ctx, t, conn)
	assert.Equal(t, "session", msg.Type)
	data := msg.Data.(map[string]any)
	assert.Equal(t, sess.ID, data["session_id"])
	assert.Equal(t, float64(42), data["asset_id"])
	assert.Equal(t, "Vehicle", data["category"])
}

func TestFieldWriteAck(t *testing.T) {
	conn, sess, ctx := dialSession(t)
	readMessage(ctx, t, conn) // session

	send(ctx, t, conn, "field", "r1", FieldData{Field: "purchase_cost", Value: "50000"})
	msg := readMessage(ctx, t, conn)
	assert.Equal(t, "ack", msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	ack := msg.Data.(map[string]any)
	assert.Equal(t, true, ack["applied"])

	err := sess.With(func(s *types.FormState) error {
		assert.Equal(t, "50000", s.CoreValue(validate.FieldPurchaseCost))
		return nil
	})
	require.NoError(t, err)
}

func TestGuardWarningPushedBeforeAck(t *testing.T) {
	conn, _, ctx := dialSession(t)
	readMessage(ctx, t, conn) // session

	send(ctx, t, conn, "field", "r1", FieldData{Field: validate.FieldPurchasedOn, Value: "2024-06-01"})
	readMessage(ctx, t, conn) // ack

	// Warranty expiry before the purchase date violates the guard.
	send(ctx, t, conn, "field", "r2", FieldData{Field: validate.FieldWarrantyExpiry, Value: "2024-01-01"})
	msg := readMessage(ctx, t, conn)
	require.Equal(t, "warning", msg.Type)
	warning := msg.Data.(map[string]any)
	assert.Equal(t, validate.FieldWarrantyExpiry, warning["cleared"])

	msg = readMessage(ctx, t, conn)
	require.Equal(t, "ack", msg.Type)
	assert.Equal(t, false, msg.Data.(map[string]any)["applied"])
}

func TestValidateOverSocket(t *testing.T) {
	conn, _, ctx := dialSession(t)
	readMessage(ctx, t, conn) // session

	send(ctx, t, conn, "validate", "v1", nil)
	msg := readMessage(ctx, t, conn)
	require.Equal(t, "errors", msg.Type)
	errs := msg.Data.(map[string]any)["errors"].([]any)
	// Vehicle state holds only the asset name, so the first missing
	// required field reports.
	require.Len(t, errs, 1)
}

func TestPingPongAndUnknownType(t *testing.T) {
	conn, _, ctx := dialSession(t)
	readMessage(ctx, t, conn) // session

	send(ctx, t, conn, "ping", "p1", nil)
	msg := readMessage(ctx, t, conn)
	assert.Equal(t, "pong", msg.Type)
	assert.Equal(t, "p1", msg.RequestID)

	send(ctx, t, conn, "bogus", "b1", nil)
	msg = readMessage(ctx, t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "unknown_type", msg.Data.(map[string]any)["code"])
}

func TestUnknownSessionRejected(t *testing.T) {
	sessions := form.NewManager(time.Hour, time.Hour)
	srv := httptest.NewServer(NewHandler(sessions, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, srv.URL+"?session_id=nope", nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, 404, resp.StatusCode)
	}
}
