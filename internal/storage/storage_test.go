package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "cassandra"}, slog.Default())
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open() error = %v, want ErrUnknownDriver", err)
	}
	if !strings.Contains(err.Error(), `"cassandra"`) {
		t.Errorf("error %q should name the requested driver", err.Error())
	}
}

func TestOpen_FactoryError(t *testing.T) {
	boom := errors.New("connection refused")
	Register("failing-test", func(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
		return nil, boom
	})

	_, err := Open(context.Background(), Config{Driver: "failing-test"}, slog.Default())
	if !errors.Is(err, boom) {
		t.Fatalf("Open() error = %v, want wrapped factory error", err)
	}
	if !strings.Contains(err.Error(), "failing-test") {
		t.Errorf("error %q should name the driver", err.Error())
	}
}

func TestRegister_Duplicate(t *testing.T) {
	factory := func(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
		return nil, errors.New("unused")
	}
	Register("dup-test", factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("dup-test", factory)
}

func TestDrivers_Sorted(t *testing.T) {
	Register("zz-test", func(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
		return nil, errors.New("unused")
	})
	Register("aa-test", func(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
		return nil, errors.New("unused")
	})

	names := Drivers()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Drivers() not sorted: %v", names)
		}
	}
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 45, 123_000_000, time.UTC)

	got := FromMillis(ToMillis(now))
	if !got.Equal(now) {
		t.Errorf("round trip = %v, want %v", got, now)
	}

	// Sub-millisecond precision is deliberately dropped
	fine := now.Add(456 * time.Microsecond)
	if !FromMillis(ToMillis(fine)).Equal(now) {
		t.Errorf("expected truncation to millisecond precision")
	}
}

func TestNullableMillis(t *testing.T) {
	if v := NullableMillis(nil); v.Valid {
		t.Error("nil time should produce an invalid NullInt64")
	}
	if got := TimeFromNull(NullableMillis(nil)); got != nil {
		t.Errorf("TimeFromNull(invalid) = %v, want nil", got)
	}

	now := time.Now().Truncate(time.Millisecond).UTC()
	v := NullableMillis(&now)
	if !v.Valid {
		t.Fatal("non-nil time should produce a valid NullInt64")
	}
	got := TimeFromNull(v)
	if got == nil || !got.Equal(now) {
		t.Errorf("TimeFromNull() = %v, want %v", got, now)
	}
}
