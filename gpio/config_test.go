package gpio

import "testing"

func TestNewSimBackend(t *testing.T) {
	conn, err := New(Config{Sim: &SimConfig{}})
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer conn.Close()

	if _, ok := conn.(*Sim); !ok {
		t.Fatalf("got backend %T, want *Sim", conn)
	}
}

func TestNewRequiresExactlyOneBackend(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("an empty config should not build a backend")
	}

	_, err := New(Config{Sim: &SimConfig{}, Pigpio: &PigpioConfig{}})
	if err == nil {
		t.Fatal("two selected backends should not build")
	}
}

func TestConfigKind(t *testing.T) {
	for _, tc := range []struct {
		config Config
		kind   string
	}{
		{Config{}, "none"},
		{Config{Sim: &SimConfig{}}, "sim"},
		{Config{Pigpio: &PigpioConfig{Addr: "localhost:8888"}}, "pigpio"},
		{Config{Gpiocdev: &GpiocdevConfig{}}, "gpiocdev"},
		{Config{Rpio: &RpioConfig{}}, "rpio"},
		{Config{Periph: &PeriphConfig{}}, "periph"},
	} {
		if got := tc.config.Kind(); got != tc.kind {
			t.Errorf("Kind() = %q, want %q", got, tc.kind)
		}
	}
}
