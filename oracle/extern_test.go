package oracle

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
)

func TestExternRequestWireFormat(t *testing.T) {
	req := externRequest{
		Op:     "invoke",
		Module: "m",
		Func:   "f",
		Args: []externValue{
			{Type: "i32", Value: "5"},
			{Type: "f64", Value: "0x1.8p3"},
		},
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"op":"invoke","module":"m","func":"f","args":[{"type":"i32","value":"5"},{"type":"f64","value":"0x1.8p3"}]}`
	if string(b) != want {
		t.Errorf("wire = %s", b)
	}
}

func TestExternStalledChildTimesOut(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	o := External("sleeper", []string{"sh", "-c", "read line; sleep 30"})
	s, err := o.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer func() { _ = s.Close(ctx) }()

	callCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Instantiate(callCtx, "m", "function %f() {\n}")
	if err == nil {
		t.Fatal("Instantiate succeeded against a child that never answers")
	}
	if !errors.IsKind(err, errors.KindTimeout) {
		t.Errorf("err = %v, want timeout kind", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("stalled child held the caller for %v", elapsed)
	}

	t.Run("session unusable afterwards", func(t *testing.T) {
		if err := s.Instantiate(ctx, "m", ""); err == nil {
			t.Error("killed session accepted another request")
		}
	})
}

func TestExternDecodeValues(t *testing.T) {
	s := &externSession{oracle: "test"}

	i64 := conformance.Type{Kind: conformance.KindI64}
	vals, err := s.decodeValues([]externValue{{Type: "i64", Value: "-1"}}, []conformance.Type{i64})
	if err != nil {
		t.Fatalf("decodeValues: %v", err)
	}
	if !vals[0].Equal(conformance.I64(-1)) {
		t.Errorf("value = %s", vals[0].Format())
	}

	t.Run("type drift", func(t *testing.T) {
		_, err := s.decodeValues([]externValue{{Type: "i32", Value: "1"}}, []conformance.Type{i64})
		if err == nil {
			t.Error("decodeValues accepted i32 where i64 was declared")
		}
	})
	t.Run("bad literal", func(t *testing.T) {
		_, err := s.decodeValues([]externValue{{Type: "i64", Value: "zzz"}}, []conformance.Type{i64})
		if err == nil {
			t.Error("decodeValues accepted malformed literal")
		}
	})
	t.Run("bad type", func(t *testing.T) {
		_, err := s.decodeValues([]externValue{{Type: "q7", Value: "1"}}, nil)
		if err == nil {
			t.Error("decodeValues accepted unknown type")
		}
	})
}
