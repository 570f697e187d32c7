package postgres

import "testing"

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			"explicit dsn wins",
			ClientConfig{DSN: "postgres://u:p@db:5432/x", Host: "ignored"},
			"postgres://u:p@db:5432/x",
		},
		{
			"built from fields",
			ClientConfig{Host: "localhost", Port: 5433, Database: "polyview", User: "pv", Password: "pw", SSLMode: "require"},
			"postgres://pv:pw@localhost:5433/polyview?sslmode=require",
		},
		{
			"defaults for port and sslmode",
			ClientConfig{Host: "db", Database: "polyview", User: "pv", Password: "pw"},
			"postgres://pv:pw@db:5432/polyview?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
