package grpc_control

import (
	"context"
	"net"
	"sync"
	"testing"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeControl struct {
	mu       sync.Mutex
	trades   []models.MTrade
	enabled  bool
	panicErr error
}

func (f *fakeControl) Status() models.MStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.MStatus{Symbol: "BTCUSDT", Balance: 10100, SignalsEnabled: f.enabled, ClosedTradeCount: len(f.trades)}
}

func (f *fakeControl) Trades() []models.MTrade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MTrade(nil), f.trades...)
}

func (f *fakeControl) Panic(context.Context) ([]models.MTrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicErr != nil {
		return nil, f.panicErr
	}
	f.enabled = false
	closed := models.MTrade{ID: "p", ExitReason: models.ExitPanic, PnL: -3}
	f.trades = append(f.trades, closed)
	return []models.MTrade{closed}, nil
}

func dial(t *testing.T, control *fakeControl) *TraderControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGrpcServer(&models.MConfig{}, NewControlService(control, nil), nil)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewTraderControlClient(conn)
}

func TestGetStatus(t *testing.T) {
	client := dial(t, &fakeControl{enabled: true})
	resp, err := client.GetStatus(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	fields := resp.GetFields()
	if fields["symbol"].GetStringValue() != "BTCUSDT" || fields["balance"].GetNumberValue() != 10100 {
		t.Errorf("unexpected status %v", resp)
	}
	if !fields["signals_enabled"].GetBoolValue() {
		t.Error("signals_enabled should be true")
	}
}

func TestPanicLatches(t *testing.T) {
	control := &fakeControl{enabled: true}
	client := dial(t, control)

	req, _ := structpb.NewStruct(map[string]interface{}{"reason": "test"})
	resp, err := client.Panic(context.Background(), req)
	if err != nil {
		t.Fatalf("Panic: %v", err)
	}
	closed := resp.GetFields()["closed"].GetListValue().GetValues()
	if len(closed) != 1 || closed[0].GetStructValue().GetFields()["exit_reason"].GetStringValue() != "PANIC" {
		t.Errorf("closed = %v", closed)
	}

	st, err := client.GetStatus(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if st.GetFields()["signals_enabled"].GetBoolValue() {
		t.Error("signals still enabled after panic")
	}
}

func TestPanicErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{helpers.NewValidationError(helpers.ErrNonPositivePrice, "no price"), codes.FailedPrecondition},
		{helpers.NewInvariantError(helpers.ErrInvalidExitReason, "bad"), codes.InvalidArgument},
		{context.Canceled, codes.Internal},
	}
	for _, tt := range tests {
		client := dial(t, &fakeControl{panicErr: tt.err})
		_, err := client.Panic(context.Background(), &structpb.Struct{})
		if status.Code(err) != tt.want {
			t.Errorf("Panic(%v) code = %v, want %v", tt.err, status.Code(err), tt.want)
		}
	}
}

func TestListTrades(t *testing.T) {
	control := &fakeControl{trades: []models.MTrade{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	client := dial(t, control)

	all, err := client.ListTrades(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatal(err)
	}
	if all.GetFields()["count"].GetNumberValue() != 3 {
		t.Errorf("count = %v", all.GetFields()["count"])
	}

	req, _ := structpb.NewStruct(map[string]interface{}{"limit": 2})
	last, err := client.ListTrades(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	trades := last.GetFields()["trades"].GetListValue().GetValues()
	if len(trades) != 2 || trades[0].GetStructValue().GetFields()["id"].GetStringValue() != "b" {
		t.Errorf("limited trades = %v", trades)
	}

	for _, bad := range []interface{}{-1, 1.5, "two"} {
		req, _ := structpb.NewStruct(map[string]interface{}{"limit": bad})
		if _, err := client.ListTrades(context.Background(), req); status.Code(err) != codes.InvalidArgument {
			t.Errorf("limit %v: code %v", bad, status.Code(err))
		}
	}
}

func TestDetachedService(t *testing.T) {
	svc := NewControlService(nil, nil)
	if _, err := svc.GetStatus(context.Background(), &emptypb.Empty{}); status.Code(err) != codes.Unavailable {
		t.Errorf("code = %v", status.Code(err))
	}
}
