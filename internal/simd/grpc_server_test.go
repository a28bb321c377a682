package simd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/advisor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newBufconnClient(t *testing.T, svc *SessionService) *ScalerClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	srv := grpc.NewServer()
	NewScalerGRPCServer(svc).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewScalerClient(conn)
}

func grpcState(t *testing.T, resp *structpb.Struct) map[string]any {
	t.Helper()
	sess, ok := resp.AsMap()["session"].(map[string]any)
	if !ok {
		t.Fatalf("expected session in response, got %v", resp.AsMap())
	}
	st, ok := sess["state"].(map[string]any)
	if !ok {
		t.Fatalf("expected state in session, got %v", sess)
	}
	return st
}

func TestGRPCServerSessionLifecycle(t *testing.T) {
	svc := newTestService(t, advisor.Heuristic{}, nil)
	client := newBufconnClient(t, svc)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Call(ctx, "CreateSession", map[string]any{
		"session_id": "g",
		"seed":       "9007199254740993",
	})
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	sess := resp.AsMap()["session"].(map[string]any)
	if sess["seed"] != "9007199254740993" {
		t.Errorf("expected the exact seed back as a string, got %v", sess["seed"])
	}

	resp, err = client.Call(ctx, "Advance", map[string]any{"session_id": "g"})
	if err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if st := grpcState(t, resp); st["round"] != float64(2) {
		t.Errorf("expected round 2, got %v", st["round"])
	}

	resp, err = client.Call(ctx, "ScaleUp", map[string]any{"session_id": "g", "target_tier": 1})
	if err != nil {
		t.Fatalf("ScaleUp error: %v", err)
	}
	if st := grpcState(t, resp); st["tier_index"] != float64(1) {
		t.Errorf("expected tier 1, got %v", st["tier_index"])
	}

	if _, err := client.Call(ctx, "RequestAdvice", map[string]any{"session_id": "g"}); err != nil {
		t.Fatalf("RequestAdvice error: %v", err)
	}
	waitAdvice(t, svc, "g")
	resp, err = client.Call(ctx, "GetAdvice", map[string]any{"session_id": "g"})
	if err != nil {
		t.Fatalf("GetAdvice error: %v", err)
	}
	if adv := resp.AsMap()["advice"].(map[string]any); adv["status"] != string(AdviceReady) {
		t.Errorf("expected ready advice, got %v", adv)
	}

	resp, err = client.Call(ctx, "Reset", map[string]any{"session_id": "g"})
	if err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if st := grpcState(t, resp); st["round"] != float64(1) {
		t.Errorf("expected round 1 after reset, got %v", st["round"])
	}

	if _, err := client.Call(ctx, "GetMetricsSummary", map[string]any{"session_id": "g"}); err != nil {
		t.Fatalf("GetMetricsSummary error: %v", err)
	}
	if _, err := client.Call(ctx, "DeleteSession", map[string]any{"session_id": "g"}); err != nil {
		t.Fatalf("DeleteSession error: %v", err)
	}
}

func TestGRPCServerOutcome(t *testing.T) {
	svc := newTestService(t, nil, nil)
	client := newBufconnClient(t, svc)
	ctx := context.Background()

	if _, err := client.Call(ctx, "CreateSession", map[string]any{"session_id": "g", "seed": 4}); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	final := playOut(t, svc, "g")

	resp, err := client.Call(ctx, "GetOutcome", map[string]any{"session_id": "g"})
	if err != nil {
		t.Fatalf("GetOutcome error: %v", err)
	}
	if o := resp.AsMap()["outcome"].(map[string]any); o["grade"] != string(final.Outcome.Grade) {
		t.Errorf("expected grade %s, got %v", final.Outcome.Grade, o)
	}
}

func TestGRPCServerErrorCodes(t *testing.T) {
	svc := newTestService(t, nil, nil)
	client := newBufconnClient(t, svc)
	ctx := context.Background()

	if _, err := client.Call(ctx, "CreateSession", map[string]any{"session_id": "g", "seed": 1}); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	tests := []struct {
		name   string
		method string
		req    map[string]any
		want   codes.Code
	}{
		{"missing id", "GetSession", map[string]any{}, codes.InvalidArgument},
		{"unknown session", "Advance", map[string]any{"session_id": "nope"}, codes.NotFound},
		{"duplicate", "CreateSession", map[string]any{"session_id": "g"}, codes.AlreadyExists},
		{"fractional seed", "CreateSession", map[string]any{"seed": 1.5}, codes.InvalidArgument},
		{"restart while up", "Restart", map[string]any{"session_id": "g"}, codes.FailedPrecondition},
		{"no target tier", "ScaleUp", map[string]any{"session_id": "g"}, codes.InvalidArgument},
		{"outcome too early", "GetOutcome", map[string]any{"session_id": "g"}, codes.FailedPrecondition},
		{"no advice", "GetAdvice", map[string]any{"session_id": "g"}, codes.NotFound},
		{"blocked callback", "CreateSession", map[string]any{"callback_url": "http://192.168.0.1/"}, codes.InvalidArgument},
		{"unknown method", "Explode", map[string]any{}, codes.Unimplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.method, tt.req)
			if got := status.Code(err); got != tt.want {
				t.Fatalf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}
