package biostar

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"guntamatic_bridge/internal/models"
)

func TestSetProgram_DeniedWithoutWriteKey(t *testing.T) {
	t.Parallel()

	stub := newDeviceStub(t)
	err := stub.client("").SetProgram(context.Background(), models.ProgramNormal)
	if !errors.Is(err, ErrNoWriteAccess) {
		t.Fatalf("want ErrNoWriteAccess, got %v", err)
	}
	if total := len(stub.requests); total != 0 {
		t.Errorf("write denial must not touch the network, saw %d requests: %v", total, stub.requests)
	}
}

func TestSetTemperature_DeniedWithoutWriteKey(t *testing.T) {
	t.Parallel()

	stub := newDeviceStub(t)
	err := stub.client("").SetTemperature(context.Background(), 0, models.PeriodDay, 21.5)
	if !errors.Is(err, ErrNoWriteAccess) {
		t.Fatalf("want ErrNoWriteAccess, got %v", err)
	}
	if len(stub.requests) != 0 {
		t.Errorf("write denial must not touch the network: %v", stub.requests)
	}
}

func TestSetProgram_AckChain(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name       string
		extBody    string
		extStatus  int
		legacyCode int // 0 = legacy endpoint unregistered
		wantErr    error
		wantLegacy int
	}

	cases := []testCase{
		{
			name:      "json ack succeeds on extended endpoint",
			extBody:   `{"ack": ""}`,
			extStatus: http.StatusOK,
		},
		{
			name:      "json err rejects without legacy fallback",
			extBody:   `{"err": "invalid value"}`,
			extStatus: http.StatusOK,
			wantErr:   ErrWriteRejected,
		},
		{
			name:      "text OK counts as success",
			extBody:   "OK",
			extStatus: http.StatusOK,
		},
		{
			name:      "text ack is case-insensitive",
			extBody:   "command Acked",
			extStatus: http.StatusOK,
		},
		{
			name:       "inconclusive text falls back to legacy endpoint",
			extBody:    "whatever",
			extStatus:  http.StatusOK,
			legacyCode: http.StatusOK,
			wantLegacy: 1,
		},
		{
			name:       "extended non-200 falls back to legacy endpoint",
			extBody:    "",
			extStatus:  http.StatusNotFound,
			legacyCode: http.StatusOK,
			wantLegacy: 1,
		},
		{
			name:       "legacy non-200 fails the chain",
			extBody:    "",
			extStatus:  http.StatusNotFound,
			legacyCode: http.StatusInternalServerError,
			wantErr:    ErrWriteFailed,
			wantLegacy: 1,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stub := newDeviceStub(t)
			stub.routes[extParsetPath] = func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("syn"); got != synProgram {
					t.Errorf("syn: want %s, got %s", synProgram, got)
				}
				if got := r.URL.Query().Get("value"); got != "2" {
					t.Errorf("value: want 2, got %s", got)
				}
				if got := r.URL.Query().Get("key"); got != "writekey" {
					t.Errorf("key: want write key, got %s", got)
				}
				w.WriteHeader(tc.extStatus)
				_, _ = w.Write([]byte(tc.extBody))
			}
			if tc.legacyCode != 0 {
				code := tc.legacyCode
				stub.routes[parsetPath] = func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(code)
				}
			}

			err := stub.client("writekey").SetProgram(context.Background(), models.ProgramHeat)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := stub.requests[parsetPath]; got != tc.wantLegacy {
				t.Errorf("legacy endpoint hit %d times, want %d", got, tc.wantLegacy)
			}
		})
	}
}

func TestSetProgram_TransportFailureFallsBackToLegacy(t *testing.T) {
	t.Parallel()

	stub := newDeviceStub(t)
	stub.routes[parsetPath] = func(w http.ResponseWriter, r *http.Request) {}
	client := stub.client("writekey")
	// Abort the extended response mid-stream so the client sees a transport
	// error rather than an HTTP status.
	stub.routes[extParsetPath] = func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer not hijackable")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	}

	if err := client.SetProgram(context.Background(), models.ProgramOff); err != nil {
		t.Fatalf("legacy fallback must absorb the transport failure: %v", err)
	}
	if stub.requests[parsetPath] != 1 {
		t.Errorf("legacy endpoint hits: want 1, got %d", stub.requests[parsetPath])
	}
}

func TestSetTemperature_ParameterCodes(t *testing.T) {
	t.Parallel()

	type testCase struct {
		circuit int
		period  models.TempPeriod
		value   float64
		wantSyn string
		wantVal string
	}

	cases := []testCase{
		{circuit: 0, period: models.PeriodDay, value: 21.5, wantSyn: "HK102", wantVal: "21.5"},
		{circuit: 0, period: models.PeriodNight, value: 16, wantSyn: "HK103", wantVal: "16"},
		{circuit: 3, period: models.PeriodDay, value: 19.5, wantSyn: "HK402", wantVal: "19.5"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.wantSyn, func(t *testing.T) {
			t.Parallel()

			stub := newDeviceStub(t)
			var gotSyn, gotVal string
			stub.handleJSONWith(extParsetPath, `{"ack": ""}`, func(r *http.Request) {
				gotSyn = r.URL.Query().Get("syn")
				gotVal = r.URL.Query().Get("value")
			})

			if err := stub.client("writekey").SetTemperature(context.Background(), tc.circuit, tc.period, tc.value); err != nil {
				t.Fatalf("SetTemperature: %v", err)
			}
			if gotSyn != tc.wantSyn {
				t.Errorf("syn: want %s, got %s", tc.wantSyn, gotSyn)
			}
			if gotVal != tc.wantVal {
				t.Errorf("value: want %s, got %s", tc.wantVal, gotVal)
			}
		})
	}
}

func TestSetTemperature_RejectAndNoLegacyFallback(t *testing.T) {
	t.Parallel()

	t.Run("explicit reject", func(t *testing.T) {
		t.Parallel()
		stub := newDeviceStub(t)
		stub.handleJSON(extParsetPath, `{"err": "out of range"}`)
		err := stub.client("writekey").SetTemperature(context.Background(), 0, models.PeriodDay, 35)
		if !errors.Is(err, ErrWriteRejected) {
			t.Fatalf("want ErrWriteRejected, got %v", err)
		}
	})

	t.Run("inconclusive fails without touching the legacy endpoint", func(t *testing.T) {
		t.Parallel()
		stub := newDeviceStub(t)
		stub.routes[parsetPath] = func(w http.ResponseWriter, r *http.Request) {}
		err := stub.client("writekey").SetTemperature(context.Background(), 0, models.PeriodDay, 21)
		if !errors.Is(err, ErrWriteFailed) {
			t.Fatalf("want ErrWriteFailed, got %v", err)
		}
		if stub.requests[parsetPath] != 0 {
			t.Errorf("temperature writes have no legacy fallback, saw %d hits", stub.requests[parsetPath])
		}
	})
}
